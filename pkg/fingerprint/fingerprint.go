// Package fingerprint converts response texts into variability statistics
// over semantic-similarity scores.
package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hypernym-ai/modelprint/pkg/embed"
	"github.com/hypernym-ai/modelprint/pkg/models"
	"github.com/hypernym-ai/modelprint/pkg/prompt"
)

// ErrInsufficientData is returned when fewer than two valid responses exist,
// where variability statistics would be degenerate.
var ErrInsufficientData = errors.New("fingerprint: fewer than two valid responses")

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Similarities embeds the reference text and each response, returning the
// reference-anchored cosine similarity per response in input order. Payload
// responses are reduced to their synthesis portion before embedding.
func Similarities(ctx context.Context, embedder embed.Embedder, reference string, responses []string) ([]float64, error) {
	if len(responses) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(responses)+1)
	texts = append(texts, reference)
	for _, r := range responses {
		texts = append(texts, prompt.StripPayload(r))
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed responses: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed responses: expected %d vectors, got %d", len(texts), len(vectors))
	}

	ref := vectors[0]
	sims := make([]float64, len(responses))
	for i, v := range vectors[1:] {
		sims[i] = CosineSimilarity(ref, v)
	}
	return sims, nil
}

// Compute derives the variability statistics of a similarity distribution.
// The standard deviation is the population form. Coefficient of variation
// and range ratio are non-negative, and 0 when the mean is 0; consistency
// is 1/(1+CV), so it lies in (0,1] and is maximal when the responses do not
// vary at all.
func Compute(similarities []float64) (models.FingerprintMetrics, error) {
	n := len(similarities)
	if n < 2 {
		return models.FingerprintMetrics{Samples: n}, ErrInsufficientData
	}

	var sum float64
	min, max := similarities[0], similarities[0]
	for _, s := range similarities {
		sum += s
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	mean := sum / float64(n)

	var variance float64
	for _, s := range similarities {
		d := s - mean
		variance += d * d
	}
	variance /= float64(n)
	std := math.Sqrt(variance)

	m := models.FingerprintMetrics{
		Mean:    mean,
		Std:     std,
		Min:     min,
		Max:     max,
		Samples: n,
	}
	if mean != 0 {
		m.CV = math.Abs(std / mean)
		m.RangeRatio = math.Abs((max - min) / mean)
	}
	m.Consistency = 1 / (1 + m.CV)
	return m, nil
}

// Summarize aggregates per-run metrics into one fingerprint for a model.
// Runs that produced no metrics are simply absent from the input.
func Summarize(model, testClass string, runs []models.FingerprintMetrics) models.FingerprintSummary {
	s := models.FingerprintSummary{
		Model:         model,
		TestClass:     testClass,
		RunsCompleted: len(runs),
	}
	if len(runs) == 0 {
		return s
	}

	cvs := make([]float64, len(runs))
	ranges := make([]float64, len(runs))
	consistencies := make([]float64, len(runs))
	for i, r := range runs {
		cvs[i] = r.CV
		ranges[i] = r.RangeRatio
		consistencies[i] = r.Consistency
	}
	s.CVMean, s.CVStd = meanStd(cvs)
	s.RangeMean, s.RangeStd = meanStd(ranges)
	s.ConsistencyMean, s.ConsistencyStd = meanStd(consistencies)
	return s
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / n)
}
