package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"backtest-lab/internal/domain"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero cash", Config{}, false},
		{"negative cash", Config{Cash: -1}, true},
		{"infinite cash", Config{Cash: math.Inf(1)}, true},
		{"commission of one", Config{Commission: 1}, true},
		{"negative commission", Config{Commission: -0.01}, true},
		{"negative bar limit", Config{MaxBars: -5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_WithScenario(t *testing.T) {
	base := Config{Cash: 500, TradeOnClose: true, BenchmarkAsset: "A"}

	got := base.WithScenario(domain.ScenarioConfigPessimistic)

	assert.Equal(t, 0.005, got.Commission)
	assert.False(t, got.TradeOnClose)
	assert.Equal(t, 500.0, got.Cash)
	assert.Equal(t, "A", got.BenchmarkAsset)
	assert.True(t, base.TradeOnClose, "receiver is not modified")
}

func TestConfig_WithDefaults(t *testing.T) {
	assert.Equal(t, DefaultCash, Config{}.withDefaults().Cash)
	assert.Equal(t, 42.0, Config{Cash: 42}.withDefaults().Cash)
}
