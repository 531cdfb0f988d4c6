package domain

// Bar is one OHLCV sample as persisted by the bar stores.
// Corresponds to the bars table in PostgreSQL and ClickHouse.
type Bar struct {
	Symbol      string  // asset name
	TimestampMs int64   // Unix timestamp in milliseconds
	Open        float64 // NaN when the source had no open column
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}
