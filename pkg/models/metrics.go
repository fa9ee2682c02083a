package models

// Point is one sample of a metrics time series.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// TimeSeries is one labeled series returned by a range query.
type TimeSeries struct {
	Labels map[string]string `json:"labels"`
	Points []Point           `json:"points"`
}
