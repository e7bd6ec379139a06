package calculator

import (
	"fmt"
	"math"
	"time"

	"TaxSentinel/internal/model"
)

// SustainabilityInput holds the figures the evaluator needs for one token.
type SustainabilityInput struct {
	TokenID          string
	DailyVolume      float64
	TaxRate          float64
	TotalSupplyValue float64
	DailyROI         float64
	SupplySource     string
}

// Validate rejects negative amounts and rates outside [0,1].
func (in SustainabilityInput) Validate() error {
	if err := checkRate("tax_rate", in.TaxRate); err != nil {
		return err
	}
	if err := checkRate("daily_roi", in.DailyROI); err != nil {
		return err
	}
	if err := checkAmount("daily_volume", in.DailyVolume); err != nil {
		return err
	}
	return checkAmount("total_supply_value", in.TotalSupplyValue)
}

// EvaluateSustainability checks whether tax revenue covers the promised payouts.
// With no payout owed the ratio is left undefined and the token counts as sustainable.
func EvaluateSustainability(in SustainabilityInput, now time.Time) (*model.SustainabilityReport, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	revenue := in.DailyVolume * in.TaxRate
	payouts := in.TotalSupplyValue * in.DailyROI

	rep := &model.SustainabilityReport{
		TokenID:          in.TokenID,
		DailyVolume:      in.DailyVolume,
		TaxRate:          in.TaxRate,
		DailyTaxRevenue:  revenue,
		TotalSupplyValue: in.TotalSupplyValue,
		SupplySource:     in.SupplySource,
		DailyROI:         in.DailyROI,
		RequiredPayouts:  payouts,
		IsSustainable:    true,
		Timestamp:        now,
	}
	if payouts > 0 {
		ratio := revenue / payouts
		rep.SustainabilityRatio = &ratio
		rep.IsSustainable = ratio >= 1
	}
	return rep, nil
}

func checkRate(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s=%v outside [0,1]", ErrInvalidParameter, name, v)
	}
	return nil
}

func checkAmount(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s=%v must be a non-negative amount", ErrInvalidParameter, name, v)
	}
	return nil
}
