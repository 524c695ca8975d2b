package models

// FingerprintMetrics holds the variability statistics computed over the
// similarity distribution of one run's responses for one model.
type FingerprintMetrics struct {
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	CV          float64 `json:"cv"`
	RangeRatio  float64 `json:"range_ratio"`
	Consistency float64 `json:"consistency"`
	Samples     int     `json:"samples"`
}

// FingerprintSummary aggregates per-run metrics into a behavioral
// fingerprint for one model. Recomputed from scratch each analysis run.
type FingerprintSummary struct {
	Model           string  `json:"model"`
	TestClass       string  `json:"test_class"`
	CVMean          float64 `json:"cv_mean"`
	CVStd           float64 `json:"cv_std"`
	RangeMean       float64 `json:"range_mean"`
	RangeStd        float64 `json:"range_std"`
	ConsistencyMean float64 `json:"consistency_mean"`
	ConsistencyStd  float64 `json:"consistency_std"`
	RunsCompleted   int     `json:"runs_completed"`
}
