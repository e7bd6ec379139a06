package ecosystem

import (
	"fmt"
	"time"

	"TaxSentinel/internal/model"
)

// Input is everything the aggregator combines for one run.
type Input struct {
	Tokens        []model.TokenAssessment
	Wallets       []model.WalletActivity
	Distributions []model.DistributionCheck
	Relationships map[string][]model.RewardLink
}

// Aggregate builds the ecosystem report. Alerts are ordered by category
// (price, volume, sustainability, wallet, distribution, availability) and
// within a category by input order.
func Aggregate(runID string, in Input, s Settings, now time.Time) *model.EcosystemReport {
	rep := &model.EcosystemReport{
		RunID:         runID,
		Ecosystem:     s.Name,
		Tokens:        in.Tokens,
		Wallets:       in.Wallets,
		Distributions: in.Distributions,
		Relationships: in.Relationships,
		Metrics:       Metrics(in.Tokens),
		OverallStatus: OverallStatus(in.Tokens),
		Alerts:        make([]string, 0),
		Timestamp:     now,
	}
	if rep.Tokens == nil {
		rep.Tokens = []model.TokenAssessment{}
	}
	if rep.Wallets == nil {
		rep.Wallets = []model.WalletActivity{}
	}
	if rep.Distributions == nil {
		rep.Distributions = []model.DistributionCheck{}
	}

	rep.Alerts = append(rep.Alerts, priceAlerts(in.Tokens)...)
	rep.Alerts = append(rep.Alerts, volumeAlerts(in.Tokens)...)
	rep.Alerts = append(rep.Alerts, sustainabilityAlerts(in.Tokens, s.SustainabilityCriticalRatio)...)
	rep.Alerts = append(rep.Alerts, walletAlerts(in.Wallets)...)
	rep.Alerts = append(rep.Alerts, distributionAlerts(in.Distributions)...)
	rep.Alerts = append(rep.Alerts, availabilityAlerts(in.Tokens, in.Wallets)...)
	return rep
}

// OverallStatus is the worst severity among available tokens.
func OverallStatus(tokens []model.TokenAssessment) model.Severity {
	status := model.SeverityNormal
	for _, t := range tokens {
		if t.Status != model.StatusOK {
			continue
		}
		status = model.Worst(status, t.Severity)
	}
	return status
}

// Metrics computes the cross-token rollups over available tokens.
func Metrics(tokens []model.TokenAssessment) model.EcosystemMetrics {
	var m model.EcosystemMetrics
	var changeSum, ratioSum float64
	var ratios int
	for _, t := range tokens {
		if t.Status != model.StatusOK || t.Health == nil {
			m.TokensUnavailable++
			continue
		}
		m.TokensEvaluated++
		m.TotalVolume += t.Health.CurrentVolume
		changeSum += t.Health.PriceChangePct
		if t.Sustainability != nil {
			if r, ok := t.Sustainability.Ratio(); ok && r > 0 {
				ratioSum += r
				ratios++
			}
		}
	}
	if m.TokensEvaluated > 0 {
		m.AvgPriceChangePct = changeSum / float64(m.TokensEvaluated)
	}
	if ratios > 0 {
		m.SustainabilityScore = ratioSum / float64(ratios)
	}
	return m
}

func priceAlerts(tokens []model.TokenAssessment) []string {
	var out []string
	for _, t := range tokens {
		if t.Health == nil || t.Health.PriceHealth == model.SeverityNormal {
			continue
		}
		out = append(out, fmt.Sprintf("[%s] price: %s price changed %+.2f%% over %dd (now %g)",
			t.Health.PriceHealth, t.Name, t.Health.PriceChangePct, t.Health.WindowDays, t.Health.CurrentPrice))
	}
	return out
}

func volumeAlerts(tokens []model.TokenAssessment) []string {
	var out []string
	for _, t := range tokens {
		if t.Health == nil || t.Health.VolumeHealth == model.SeverityNormal {
			continue
		}
		out = append(out, fmt.Sprintf("[%s] volume: %s volume changed %+.2f%% over %dd (now %.2f, avg %.2f)",
			t.Health.VolumeHealth, t.Name, t.Health.VolumeChangePct, t.Health.WindowDays,
			t.Health.CurrentVolume, t.Health.AverageVolume))
	}
	return out
}

func sustainabilityAlerts(tokens []model.TokenAssessment, criticalRatio float64) []string {
	var out []string
	for _, t := range tokens {
		sev := SustainabilitySeverity(t.Sustainability, criticalRatio)
		if t.Sustainability == nil || sev == model.SeverityNormal {
			continue
		}
		ratio, _ := t.Sustainability.Ratio()
		out = append(out, fmt.Sprintf("[%s] sustainability: %s tax revenue %.2f/day covers %.2f of required payouts %.2f/day",
			sev, t.Name, t.Sustainability.DailyTaxRevenue, ratio, t.Sustainability.RequiredPayouts))
	}
	return out
}

func walletAlerts(wallets []model.WalletActivity) []string {
	var out []string
	for _, w := range wallets {
		for _, lt := range w.LargeTransactions {
			verb := "received"
			prep := "from"
			if lt.Direction == model.DirectionOut {
				verb, prep = "sent", "to"
			}
			out = append(out, fmt.Sprintf("[wallet] %s %s %s %s %s at %s",
				w.Wallet, verb, lt.Amount.String(), prep, lt.Counterparty, lt.Timestamp.UTC().Format(time.RFC3339)))
		}
	}
	return out
}

func distributionAlerts(checks []model.DistributionCheck) []string {
	var out []string
	for _, c := range checks {
		for _, a := range c.Anomalies {
			switch a.Kind {
			case model.AnomalyMismatch:
				out = append(out, fmt.Sprintf("[distribution] %s %s: %s claimed %.2f%% actual %.2f%% (deviation %+.2fpp, tolerance %.2fpp)",
					c.TokenID, a.Kind, a.Recipient, a.ClaimedPct, a.ActualPct, a.DeviationPP, c.TolerancePP))
			case model.AnomalyUnclaimed:
				out = append(out, fmt.Sprintf("[distribution] %s %s: %s received %.2f%% without a claimed share",
					c.TokenID, a.Kind, a.Recipient, a.ActualPct))
			case model.AnomalyMissing:
				out = append(out, fmt.Sprintf("[distribution] %s %s: %s claimed %.2f%% but received nothing",
					c.TokenID, a.Kind, a.Recipient, a.ClaimedPct))
			}
		}
	}
	return out
}

func availabilityAlerts(tokens []model.TokenAssessment, wallets []model.WalletActivity) []string {
	var out []string
	for _, t := range tokens {
		if t.Status == model.StatusUnavailable {
			out = append(out, fmt.Sprintf("[unavailable] token %s: %s", t.Name, t.Reason))
		}
	}
	for _, w := range wallets {
		if w.Status == model.StatusUnavailable {
			out = append(out, fmt.Sprintf("[unavailable] wallet %s: %s", w.Wallet, w.Reason))
		}
	}
	return out
}

// Relationships indexes which tokens pay rewards in each asset. Every
// configured token appears, even if nothing rewards in it.
func Relationships(tokens []TokenSpec) map[string][]model.RewardLink {
	rel := make(map[string][]model.RewardLink)
	for _, t := range tokens {
		for _, r := range t.Rewards {
			rel[r] = append(rel[r], model.RewardLink{TokenID: t.ID, Name: t.Name})
		}
	}
	for _, t := range tokens {
		if _, ok := rel[t.ID]; !ok {
			rel[t.ID] = []model.RewardLink{}
		}
	}
	return rel
}
