package ledger

import (
	"sort"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

// ModelSummary aggregates ledger rows for one model/provider series.
type ModelSummary struct {
	Model          string
	Provider       string
	Total          int
	Success        int
	Failed         int
	MeanSimilarity float64
}

// Summarize groups records by (model, provider) and computes success and
// failure counts plus the mean similarity over successful rows.
func Summarize(records []models.ResultRecord) []ModelSummary {
	type key struct{ model, provider string }
	groups := make(map[key]*ModelSummary)
	sums := make(map[key]float64)

	for _, rec := range records {
		k := key{rec.Model, rec.Provider}
		s, ok := groups[k]
		if !ok {
			s = &ModelSummary{Model: rec.Model, Provider: rec.Provider}
			groups[k] = s
		}
		s.Total++
		if rec.Status == models.StatusFailed {
			s.Failed++
			continue
		}
		s.Success++
		sums[k] += rec.Similarity
	}

	out := make([]ModelSummary, 0, len(groups))
	for k, s := range groups {
		if s.Success > 0 {
			s.MeanSimilarity = sums[k] / float64(s.Success)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].Provider < out[j].Provider
	})
	return out
}
