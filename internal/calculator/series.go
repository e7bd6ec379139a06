package calculator

import (
	"fmt"
	"math"

	"TaxSentinel/internal/model"
)

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: mean of empty series", ErrInsufficientData)
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// Range returns the lowest and highest of values.
func Range(values []float64) (low, high float64, err error) {
	if len(values) == 0 {
		return 0, 0, fmt.Errorf("%w: range of empty series", ErrInsufficientData)
	}
	low = math.Inf(1)
	high = math.Inf(-1)
	for _, v := range values {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return low, high, nil
}

// Prices extracts the price column of samples.
func Prices(samples []model.TokenSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Price
	}
	return out
}

// Volumes extracts the volume column of samples.
func Volumes(samples []model.TokenSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Volume
	}
	return out
}

// DailySeries reduces a chronological series to the last sample of each UTC day.
func DailySeries(samples []model.TokenSample) []model.TokenSample {
	if len(samples) == 0 {
		return nil
	}
	var daily []model.TokenSample
	current := samples[0]
	for _, s := range samples[1:] {
		if dayKey(s) != dayKey(current) {
			daily = append(daily, current)
		}
		current = s
	}
	return append(daily, current)
}

func dayKey(s model.TokenSample) int {
	y, m, d := s.Timestamp.UTC().Date()
	return y*10000 + int(m)*100 + d
}
