package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HealthReport holds the price/volume metrics of one token over a window.
// PriceVolatilityPct is nil when the samples cover fewer than two UTC days;
// VolatilityNote then says why.
type HealthReport struct {
	TokenID            string    `json:"token_id"`
	WindowDays         int       `json:"window_days"`
	SampleCount        int       `json:"sample_count"`
	CurrentPrice       float64   `json:"current_price"`
	AveragePrice       float64   `json:"average_price"`
	PriceChangePct     float64   `json:"price_change_pct"`
	PriceVolatilityPct *float64  `json:"price_volatility_pct"`
	VolatilityNote     string    `json:"volatility_note,omitempty"`
	PriceHealth        Severity  `json:"price_health"`
	CurrentVolume      float64   `json:"current_volume"`
	AverageVolume      float64   `json:"average_volume"`
	VolumeChangePct    float64   `json:"volume_change_pct"`
	VolumeHealth       Severity  `json:"volume_health"`
	VolumeSpike        bool      `json:"volume_spike"`
	Timestamp          time.Time `json:"timestamp"`
}

// Severity is the worst of the price and volume health levels.
func (h *HealthReport) Severity() Severity {
	return Worst(h.PriceHealth, h.VolumeHealth)
}

// Supply value origins.
const (
	SupplyConfigured = "configured"
	SupplyMarketCap  = "market_cap"
	SupplyEstimated  = "estimated"
)

// SustainabilityReport compares tax revenue to the payouts it must fund.
// SustainabilityRatio is nil when no payout is owed.
type SustainabilityReport struct {
	TokenID             string    `json:"token_id"`
	DailyVolume         float64   `json:"daily_volume"`
	TaxRate             float64   `json:"tax_rate"`
	DailyTaxRevenue     float64   `json:"daily_tax_revenue"`
	TotalSupplyValue    float64   `json:"total_supply_value"`
	SupplySource        string    `json:"supply_source,omitempty"`
	DailyROI            float64   `json:"daily_roi"`
	RequiredPayouts     float64   `json:"required_payouts"`
	IsSustainable       bool      `json:"is_sustainable"`
	SustainabilityRatio *float64  `json:"sustainability_ratio"`
	Timestamp           time.Time `json:"timestamp"`
}

// Ratio returns the sustainability ratio and whether it is defined.
func (s *SustainabilityReport) Ratio() (float64, bool) {
	if s.SustainabilityRatio == nil {
		return 0, false
	}
	return *s.SustainabilityRatio, true
}

// LargeTransaction is a transfer at or above the large-transaction threshold.
type LargeTransaction struct {
	Wallet       string          `json:"wallet"`
	Hash         string          `json:"hash,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Direction    Direction       `json:"direction"`
	Counterparty string          `json:"counterparty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// WalletActivity summarises one wallet's transfers over the analyzed window.
type WalletActivity struct {
	Wallet            string             `json:"wallet"`
	Address           string             `json:"address"`
	TokenID           string             `json:"token_id,omitempty"`
	TotalTransactions int                `json:"total_transactions"`
	Incoming          int                `json:"incoming_transactions"`
	Outgoing          int                `json:"outgoing_transactions"`
	TotalIn           decimal.Decimal    `json:"total_in"`
	TotalOut          decimal.Decimal    `json:"total_out"`
	NetFlow           decimal.Decimal    `json:"net_flow"`
	LargeTransactions []LargeTransaction `json:"large_transactions"`
	Latest            *Transaction       `json:"latest_transaction,omitempty"`
	Status            string             `json:"status"`
	Reason            string             `json:"reason,omitempty"`
}

// Distribution anomaly kinds.
const (
	AnomalyMismatch  = "MismatchAlert"
	AnomalyUnclaimed = "UnclaimedRecipient"
	AnomalyMissing   = "MissingDistribution"
)

// RecipientShare compares a claimed share of distributed tax with the observed one.
// Shares and deviations are in percent / percentage points.
type RecipientShare struct {
	Recipient       string          `json:"recipient"`
	ClaimedPct      float64         `json:"claimed_share_pct"`
	ActualPct       float64         `json:"actual_share_pct"`
	ActualAmount    decimal.Decimal `json:"actual_amount"`
	DeviationPP     float64         `json:"deviation_pp"`
	DeviationRelPct *float64        `json:"deviation_pct"`
	Claimed         bool            `json:"claimed"`
}

// DistributionAnomaly is a single finding of the tax distribution verifier.
type DistributionAnomaly struct {
	Kind        string  `json:"kind"`
	Recipient   string  `json:"recipient"`
	ClaimedPct  float64 `json:"claimed_share_pct"`
	ActualPct   float64 `json:"actual_share_pct"`
	DeviationPP float64 `json:"deviation_pp"`
}

// CollectionSummary describes tax inflows into a collection wallet.
type CollectionSummary struct {
	Wallet             string                     `json:"wallet"`
	TotalCollected     decimal.Decimal            `json:"total_collected"`
	AvgDailyCollection decimal.Decimal            `json:"avg_daily_collection"`
	LastDays           map[string]decimal.Decimal `json:"last_7_days"`
}

// DistributionCheck is the verifier output for one token's claimed schedule.
type DistributionCheck struct {
	TokenID          string                `json:"token_id"`
	TolerancePP      float64               `json:"tolerance_pp"`
	TotalDistributed decimal.Decimal       `json:"total_distributed"`
	Recipients       []RecipientShare      `json:"recipients"`
	Anomalies        []DistributionAnomaly `json:"anomalies"`
	Collection       []CollectionSummary   `json:"collection,omitempty"`
}

// Token assessment states.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// TokenAssessment pairs a token's health and sustainability reports.
// When Status is unavailable both reports may be nil and Reason explains why.
type TokenAssessment struct {
	TokenID        string                `json:"token_id"`
	Name           string                `json:"name"`
	Status         string                `json:"status"`
	Reason         string                `json:"reason,omitempty"`
	Severity       Severity              `json:"severity"`
	Health         *HealthReport         `json:"health,omitempty"`
	Sustainability *SustainabilityReport `json:"sustainability,omitempty"`
	Plot           string                `json:"plot,omitempty"`
}

// EcosystemMetrics are cross-token rollups.
type EcosystemMetrics struct {
	TotalVolume         float64 `json:"total_volume"`
	AvgPriceChangePct   float64 `json:"avg_price_change_pct"`
	SustainabilityScore float64 `json:"sustainability_score"`
	TokensEvaluated     int     `json:"tokens_evaluated"`
	TokensUnavailable   int     `json:"tokens_unavailable"`
}

// RewardLink names a token that pays rewards in some asset.
type RewardLink struct {
	TokenID string `json:"token"`
	Name    string `json:"name"`
}

// EcosystemReport is the aggregated result of one monitoring run.
type EcosystemReport struct {
	RunID         string                  `json:"run_id"`
	Ecosystem     string                  `json:"ecosystem"`
	Tokens        []TokenAssessment       `json:"tokens"`
	Wallets       []WalletActivity        `json:"wallets"`
	Distributions []DistributionCheck     `json:"distributions"`
	Metrics       EcosystemMetrics        `json:"metrics"`
	Relationships map[string][]RewardLink `json:"relationships,omitempty"`
	OverallStatus Severity                `json:"overall_status"`
	Alerts        []string                `json:"alerts"`
	Timestamp     time.Time               `json:"timestamp"`
}
