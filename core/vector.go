package core

import "math"

// NormalizeVector scales v to unit length and returns the result as a new
// slice. Zero vectors come back as zero vectors of the same length.
// Some embedding servers return unnormalized vectors. The ingestion writer
// and the re-embedder both store normalized vectors so scores are comparable
// across models.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	result := make([]float32, len(v))
	if sum == 0 {
		return result
	}
	magnitude := math.Sqrt(sum)
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}
