package entities

import (
	"fmt"
	"math"
	"strings"
)

// Metric is the distance function of a similarity index.
type Metric string

const (
	MetricL2     Metric = "l2"
	MetricCosine Metric = "cosine"
)

// ParseMetric accepts "l2" / "euclidean" and "cosine".
func ParseMetric(raw string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "l2", "euclidean":
		return MetricL2, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", raw)
	}
}

// Distance computes the metric between two equal-length vectors.
// Callers check dimensions first.
func (m Metric) Distance(a, b Vector) float64 {
	switch m {
	case MetricCosine:
		return CosineDistance(a, b)
	default:
		return L2Distance(a, b)
	}
}

// L2Distance is the Euclidean distance.
func L2Distance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance is 1 - cosine similarity. Zero vectors are at distance 1.
func CosineDistance(a, b Vector) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
