package strategy

// Params are the strategy knobs that depend on the current regime.
type Params struct {
	RSILimit     float64 `json:"rsi-limit" yaml:"rsi_limit"`
	TPMultiplier float64 `json:"tp-multiplier" yaml:"tp_multiplier"` // take profit distance in ATRs
	SLMultiplier float64 `json:"sl-multiplier" yaml:"sl_multiplier"` // stop loss distance in ATRs
	RiskScale    float64 `json:"risk-scale" yaml:"risk_scale"`
}

// BaseParams is the parameter set every regime starts from.
func BaseParams() Params {
	return Params{
		RSILimit:     55,
		TPMultiplier: 2.0,
		SLMultiplier: 2.0,
		RiskScale:    1.0,
	}
}

// ParamsFor returns the parameter set for a regime. It builds a fresh value
// on every call; callers must not keep one across ticks because the regime
// can change from one bar to the next.
func ParamsFor(r Regime) Params {
	p := BaseParams()
	switch r {
	case RegimeTrending:
		p.RSILimit = 65
		p.TPMultiplier = 3.0
	case RegimeRanging:
		p.RSILimit = 45
		p.TPMultiplier = 1.5
	case RegimeVolatile:
		p.SLMultiplier = 3.0
		p.RiskScale = 0.5
	}
	return p
}
