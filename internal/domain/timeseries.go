package domain

// AssetSeries is one asset's price history as handed over by the data loader.
// Date is Unix milliseconds, strictly increasing. Close is required; Open, High,
// Low and Volume may be nil (column absent) or hold NaN for a missing sample.
// The core treats an AssetSeries as immutable.
type AssetSeries struct {
	Name   string
	Date   []int64
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// Len returns the number of samples.
func (s *AssetSeries) Len() int {
	return len(s.Date)
}

// AlignedSeries holds one asset's OHLCV on the shared aligned timeline.
type AlignedSeries struct {
	Name   string
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// AlignedDataset is the shared timeline plus every asset sampled on it.
// Every AlignedSeries has exactly len(Date) entries.
type AlignedDataset struct {
	Date   []int64
	Assets []AlignedSeries
}

// Len returns the bar count.
func (d *AlignedDataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Date)
}

// Asset returns the aligned series for name.
func (d *AlignedDataset) Asset(name string) (*AlignedSeries, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Assets {
		if d.Assets[i].Name == name {
			return &d.Assets[i], true
		}
	}
	return nil, false
}

// Names returns asset names in dataset order.
func (d *AlignedDataset) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.Assets))
	for i, a := range d.Assets {
		names[i] = a.Name
	}
	return names
}

// NormalizedSeries is one asset rescaled so that Close[0] == 100.
type NormalizedSeries struct {
	Open  []float64
	High  []float64
	Low   []float64
	Close []float64
}

// NormalizedDataset maps asset name to its normalized series.
type NormalizedDataset map[string]NormalizedSeries

// TimeSeriesPoint is the per-bar portfolio snapshot.
type TimeSeriesPoint struct {
	Date           int64              `json:"date"`
	PortfolioValue Money              `json:"portfolio_value"`
	Cash           Money              `json:"cash"`
	Drawdown       float64            `json:"drawdown"`  // (peak - value) / peak
	Positions      map[string]float64 `json:"positions"` // open sizes only
}
