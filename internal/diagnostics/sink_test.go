package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"backtest-lab/internal/domain"
)

func TestCollector_KeepsOrderAndFilters(t *testing.T) {
	c := NewCollector()
	c.Report(domain.Diagnostic{Bar: 0, Code: domain.CodeZeroSize, Level: domain.LevelInfo})
	c.Report(domain.Diagnostic{Bar: 1, Code: domain.CodeNoPosition, Level: domain.LevelWarn, Asset: "Gold"})
	c.Report(domain.Diagnostic{Bar: 2, Code: domain.CodeNoPosition, Level: domain.LevelWarn, Asset: "Silver"})

	require.Equal(t, 3, c.Len())
	all := c.All()
	assert.Equal(t, 0, all[0].Bar)
	assert.Equal(t, 2, all[2].Bar)

	noPos := c.ByCode(domain.CodeNoPosition)
	require.Len(t, noPos, 2)
	assert.Equal(t, "Gold", noPos[0].Asset)
	assert.Equal(t, "Silver", noPos[1].Asset)
}

func TestCollector_AllReturnsCopy(t *testing.T) {
	c := NewCollector()
	c.Report(domain.Diagnostic{Code: domain.CodeZeroSize})

	all := c.All()
	all[0].Code = domain.CodeMissingPrice

	assert.Equal(t, domain.CodeZeroSize, c.All()[0].Code)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	m := Multi{a, nil, b}

	m.Report(domain.Diagnostic{Code: domain.CodeTruncated})

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestZapSink_LevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core))

	sink.Report(domain.Diagnostic{Bar: 4, Date: 1000, Asset: "Gold", Level: domain.LevelWarn, Code: domain.CodeInsufficientCash, Message: "order rejected"})
	sink.Report(domain.Diagnostic{Bar: 5, Level: domain.LevelInfo, Code: domain.CodeZeroSize, Message: "zero size"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "order rejected", entries[0].Message)
	assert.Equal(t, "Gold", entries[0].ContextMap()["asset"])
	assert.Equal(t, string(domain.CodeInsufficientCash), entries[0].ContextMap()["code"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	_, hasAsset := entries[1].ContextMap()["asset"]
	assert.False(t, hasAsset)
}
