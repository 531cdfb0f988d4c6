// Package diagnostics collects non-fatal anomalies reported during a run.
package diagnostics

import (
	"sync"

	"backtest-lab/internal/domain"
)

// Sink receives diagnostics. Implementations must not block the caller for long;
// the simulation loop reports synchronously.
type Sink interface {
	Report(d domain.Diagnostic)
}

// Nop discards everything.
type Nop struct{}

// Report implements Sink.
func (Nop) Report(domain.Diagnostic) {}

// Collector keeps diagnostics in memory in report order.
type Collector struct {
	mu    sync.Mutex
	items []domain.Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report implements Sink.
func (c *Collector) Report(d domain.Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// All returns a copy of the collected diagnostics.
func (c *Collector) All() []domain.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// ByCode returns the collected diagnostics with the given code.
func (c *Collector) ByCode(code domain.Code) []domain.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Diagnostic
	for _, d := range c.items {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Multi fans a diagnostic out to several sinks in order.
type Multi []Sink

// Report implements Sink.
func (m Multi) Report(d domain.Diagnostic) {
	for _, s := range m {
		if s != nil {
			s.Report(d)
		}
	}
}

var (
	_ Sink = Nop{}
	_ Sink = (*Collector)(nil)
	_ Sink = Multi(nil)
)
