package domain

// ScenarioConfig represents execution cost and fill-timing parameters.
type ScenarioConfig struct {
	ScenarioID   string  // "frictionless" | "retail" | "pessimistic"
	Commission   float64 // fractional rate applied to each fill
	TradeOnClose bool    // fill on the signal bar's close instead of the next open
}

// Scenario ID constants
const (
	ScenarioFrictionless = "frictionless"
	ScenarioRetail       = "retail"
	ScenarioPessimistic  = "pessimistic"
)

// Predefined scenario configurations
var (
	ScenarioConfigFrictionless = ScenarioConfig{
		ScenarioID:   ScenarioFrictionless,
		Commission:   0,
		TradeOnClose: true,
	}

	ScenarioConfigRetail = ScenarioConfig{
		ScenarioID:   ScenarioRetail,
		Commission:   0.001,
		TradeOnClose: false,
	}

	ScenarioConfigPessimistic = ScenarioConfig{
		ScenarioID:   ScenarioPessimistic,
		Commission:   0.005,
		TradeOnClose: false,
	}
)

// ScenarioByID returns the predefined scenario with the given ID.
func ScenarioByID(id string) (ScenarioConfig, bool) {
	switch id {
	case ScenarioFrictionless:
		return ScenarioConfigFrictionless, true
	case ScenarioRetail:
		return ScenarioConfigRetail, true
	case ScenarioPessimistic:
		return ScenarioConfigPessimistic, true
	default:
		return ScenarioConfig{}, false
	}
}
