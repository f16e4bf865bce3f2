package models

// BandsRequest asks for the full band series of one instrument, for charting
// consumers that need more than the latest signal.
type BandsRequest struct {
	Instrument    string  `query:"instrument" json:"instrument" validate:"required"`
	Window        int     `query:"window" json:"window" default:"20" validate:"gte=2,lte=500"`
	StdMultiplier float64 `query:"std_multiplier" json:"std_multiplier" default:"2" validate:"gt=0,lte=10"`
	Lookback      string  `query:"lookback" json:"lookback" default:"6mo"`
	Interval      string  `query:"interval" json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
	From          string  `query:"from" json:"from,omitempty"`
	To            string  `query:"to" json:"to,omitempty"`
}

// ScanRequest triggers an on-demand batch scan. An empty instrument list
// falls back to the configured universe.
type ScanRequest struct {
	Instruments string `query:"instruments" json:"instruments,omitempty"`
}
