package backtest

import (
	"time"

	"backtest-lab/internal/domain"
)

// Recorder receives run telemetry. Implementations must be safe for
// concurrent use when shared between engines.
type Recorder interface {
	BarProcessed()
	OrderFilled(side string)
	DiagnosticReported(code domain.Code)
	RunFinished(strategy string, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) BarProcessed()                            {}
func (nopRecorder) OrderFilled(string)                       {}
func (nopRecorder) DiagnosticReported(domain.Code)           {}
func (nopRecorder) RunFinished(string, time.Duration, error) {}
