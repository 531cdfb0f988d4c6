package idhash

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// runNamespace scopes run IDs; changing it changes every run ID.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("backtest-lab/run"))

// ComputeRunID derives a stable UUID (version 5) for a run.
// Formula: UUIDv5(ns, strategy|settings|assets joined by ','|first_date|last_date)
// Identical inputs over identical data always produce the same run_id.
func ComputeRunID(
	strategy string,
	settings string,
	assets []string,
	firstDate int64,
	lastDate int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		strategy,
		settings,
		strings.Join(assets, ","),
		firstDate,
		lastDate,
	)

	return uuid.NewSHA1(runNamespace, []byte(data)).String()
}
