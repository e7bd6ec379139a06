// Package ecosystem turns per-token samples and wallet activity into verdicts
// and rolls them up into one ecosystem report. Everything here is pure.
package ecosystem

import (
	"github.com/shopspring/decimal"

	"TaxSentinel/internal/calculator"
	"TaxSentinel/internal/distribution"
	"TaxSentinel/internal/wallet"
)

// Settings are the immutable evaluation parameters of one run.
type Settings struct {
	Name                        string
	WindowDays                  int
	Price                       calculator.DropThresholds
	Volume                      calculator.DropThresholds
	SpikeMultiplier             float64
	SustainabilityCriticalRatio float64
	SupplyEstimateMultiplier    float64
	LargeTransaction            decimal.Decimal
	DistributionTolerancePP     float64
	CollectionDays              int
}

// DefaultSettings returns the stock thresholds.
func DefaultSettings() Settings {
	return Settings{
		Name:                        "default",
		WindowDays:                  30,
		Price:                       calculator.DefaultPriceThresholds,
		Volume:                      calculator.DefaultVolumeThresholds,
		SpikeMultiplier:             2,
		SustainabilityCriticalRatio: 0.5,
		SupplyEstimateMultiplier:    10,
		LargeTransaction:            wallet.DefaultLargeTransaction,
		DistributionTolerancePP:     distribution.DefaultTolerancePP,
		CollectionDays:              7,
	}
}

// TokenSpec is the per-token configuration the evaluator reads.
type TokenSpec struct {
	ID          string
	Name        string
	TaxRate     float64
	DailyROI    float64
	SupplyValue float64
	Rewards     []string
}

// DistributionSpec is a token's claimed tax split and the wallets that pay it out.
type DistributionSpec struct {
	TokenID    string
	Claimed    distribution.Schedule
	Collectors []string
}
