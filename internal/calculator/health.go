package calculator

import (
	"errors"
	"fmt"
	"time"

	"TaxSentinel/internal/model"
)

// DropThresholds are the percentage drops at which a change becomes Warning or Critical.
type DropThresholds struct {
	WarningPct  float64 `yaml:"warning_pct"`
	CriticalPct float64 `yaml:"critical_pct"`
}

// DefaultVolumeThresholds alert on a 25% (Warning) and 50% (Critical) volume drop.
var DefaultVolumeThresholds = DropThresholds{WarningPct: 25, CriticalPct: 50}

// DefaultPriceThresholds mirror the volume defaults.
var DefaultPriceThresholds = DropThresholds{WarningPct: 25, CriticalPct: 50}

// Validate requires 0 < warning <= critical.
func (t DropThresholds) Validate() error {
	if t.WarningPct <= 0 || t.CriticalPct <= 0 {
		return fmt.Errorf("%w: drop thresholds must be positive (warning=%.2f critical=%.2f)",
			ErrInvalidParameter, t.WarningPct, t.CriticalPct)
	}
	if t.WarningPct > t.CriticalPct {
		return fmt.Errorf("%w: warning drop %.2f exceeds critical drop %.2f",
			ErrInvalidParameter, t.WarningPct, t.CriticalPct)
	}
	return nil
}

// ClassifyDrop maps a percentage change to a severity.
// Critical when change <= -critical, Warning when change <= -warning.
func ClassifyDrop(changePct float64, t DropThresholds) model.Severity {
	switch {
	case changePct <= -t.CriticalPct:
		return model.SeverityCritical
	case changePct <= -t.WarningPct:
		return model.SeverityWarning
	default:
		return model.SeverityNormal
	}
}

// HealthOptions configures BuildHealthReport.
type HealthOptions struct {
	WindowDays      int
	Price           DropThresholds
	Volume          DropThresholds
	SpikeMultiplier float64 // 0 disables spike detection
}

// BuildHealthReport computes the price/volume metrics of a chronological sample series.
func BuildHealthReport(tokenID string, samples []model.TokenSample, opts HealthOptions, now time.Time) (*model.HealthReport, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: %s has %d samples", ErrInsufficientData, tokenID, len(samples))
	}

	priceChange, err := PriceChangePct(samples)
	if err != nil {
		return nil, fmt.Errorf("price change: %w", err)
	}
	volumeChange, err := VolumeChangePct(samples)
	if err != nil {
		return nil, fmt.Errorf("volume change: %w", err)
	}
	// Volatility needs two UTC days; a shorter series still gets every other metric.
	var volatility *float64
	var volatilityNote string
	switch v, err := PriceVolatilityPct(DailySeries(samples)); {
	case err == nil:
		volatility = &v
	case errors.Is(err, ErrInsufficientData):
		volatilityNote = err.Error()
	default:
		return nil, fmt.Errorf("volatility: %w", err)
	}
	avgPrice, err := Mean(Prices(samples))
	if err != nil {
		return nil, err
	}
	avgVolume, err := Mean(Volumes(samples))
	if err != nil {
		return nil, err
	}

	last := samples[len(samples)-1]
	return &model.HealthReport{
		TokenID:            tokenID,
		WindowDays:         opts.WindowDays,
		SampleCount:        len(samples),
		CurrentPrice:       last.Price,
		AveragePrice:       avgPrice,
		PriceChangePct:     priceChange,
		PriceVolatilityPct: volatility,
		VolatilityNote:     volatilityNote,
		PriceHealth:        ClassifyDrop(priceChange, opts.Price),
		CurrentVolume:      last.Volume,
		AverageVolume:      avgVolume,
		VolumeChangePct:    volumeChange,
		VolumeHealth:       ClassifyDrop(volumeChange, opts.Volume),
		VolumeSpike:        opts.SpikeMultiplier > 0 && avgVolume > 0 && last.Volume > avgVolume*opts.SpikeMultiplier,
		Timestamp:          now,
	}, nil
}
