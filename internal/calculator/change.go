package calculator

import (
	"fmt"
	"math"

	"TaxSentinel/internal/model"
)

// PercentChange returns (last - first) / first * 100.
func PercentChange(first, last float64) (float64, error) {
	if first == 0 {
		return 0, fmt.Errorf("%w: base value is zero", ErrInvalidParameter)
	}
	return (last - first) / first * 100, nil
}

// PriceChangePct is the percentage change between the first and last sample prices.
func PriceChangePct(samples []model.TokenSample) (float64, error) {
	if len(samples) < 2 {
		return 0, fmt.Errorf("%w: price change needs 2 samples, got %d", ErrInsufficientData, len(samples))
	}
	return PercentChange(samples[0].Price, samples[len(samples)-1].Price)
}

// VolumeChangePct is the percentage change between the first and last sample volumes.
func VolumeChangePct(samples []model.TokenSample) (float64, error) {
	if len(samples) < 2 {
		return 0, fmt.Errorf("%w: volume change needs 2 samples, got %d", ErrInsufficientData, len(samples))
	}
	return PercentChange(samples[0].Volume, samples[len(samples)-1].Volume)
}

// PriceVolatilityPct is the population standard deviation of day-over-day
// returns, times 100. The divisor is the number of returns (len(daily)-1).
// daily must hold one sample per day, see DailySeries.
func PriceVolatilityPct(daily []model.TokenSample) (float64, error) {
	if len(daily) < 2 {
		return 0, fmt.Errorf("%w: volatility needs 2 daily samples, got %d", ErrInsufficientData, len(daily))
	}
	returns := make([]float64, 0, len(daily)-1)
	for i := 1; i < len(daily); i++ {
		prev := daily[i-1].Price
		if prev == 0 {
			return 0, fmt.Errorf("%w: zero price at %s", ErrInvalidParameter, daily[i-1].Timestamp.Format("2006-01-02"))
		}
		returns = append(returns, (daily[i].Price-prev)/prev)
	}
	mean, err := Mean(returns)
	if err != nil {
		return 0, err
	}
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(returns))) * 100, nil
}
