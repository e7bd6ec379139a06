package ecosystem

import (
	"fmt"
	"strings"
	"time"

	"TaxSentinel/internal/calculator"
	"TaxSentinel/internal/distribution"
	"TaxSentinel/internal/model"
	"TaxSentinel/internal/wallet"
)

// AssessToken evaluates one token. A fetch or evaluation failure never
// escapes: it becomes an unavailable assessment carrying the reason.
func AssessToken(spec TokenSpec, samples []model.TokenSample, fetchErr error, s Settings, now time.Time) model.TokenAssessment {
	ta := model.TokenAssessment{
		TokenID: spec.ID,
		Name:    spec.Name,
		Status:  model.StatusOK,
	}
	if ta.Name == "" {
		ta.Name = spec.ID
	}
	if fetchErr != nil {
		return unavailable(ta, fetchErr)
	}

	health, err := calculator.BuildHealthReport(spec.ID, samples, calculator.HealthOptions{
		WindowDays:      s.WindowDays,
		Price:           s.Price,
		Volume:          s.Volume,
		SpikeMultiplier: s.SpikeMultiplier,
	}, now)
	if err != nil {
		return unavailable(ta, fmt.Errorf("health: %w", err))
	}

	supply, source := resolveSupply(spec, samples, health.AverageVolume, s.SupplyEstimateMultiplier)
	sust, err := calculator.EvaluateSustainability(calculator.SustainabilityInput{
		TokenID:          spec.ID,
		DailyVolume:      health.AverageVolume,
		TaxRate:          spec.TaxRate,
		TotalSupplyValue: supply,
		DailyROI:         spec.DailyROI,
		SupplySource:     source,
	}, now)
	if err != nil {
		return unavailable(ta, fmt.Errorf("sustainability: %w", err))
	}

	ta.Health = health
	ta.Sustainability = sust
	ta.Severity = model.Worst(health.Severity(), SustainabilitySeverity(sust, s.SustainabilityCriticalRatio))
	return ta
}

// SustainabilitySeverity is Critical below criticalRatio, Warning in
// [criticalRatio, 1) and Normal otherwise, including an undefined ratio.
func SustainabilitySeverity(rep *model.SustainabilityReport, criticalRatio float64) model.Severity {
	if rep == nil {
		return model.SeverityNormal
	}
	ratio, ok := rep.Ratio()
	switch {
	case !ok:
		return model.SeverityNormal
	case ratio < criticalRatio:
		return model.SeverityCritical
	case ratio < 1:
		return model.SeverityWarning
	default:
		return model.SeverityNormal
	}
}

// resolveSupply prefers the configured supply value, then the latest market
// cap, then an estimate from average volume.
func resolveSupply(spec TokenSpec, samples []model.TokenSample, avgVolume, multiplier float64) (float64, string) {
	if spec.SupplyValue > 0 {
		return spec.SupplyValue, model.SupplyConfigured
	}
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].MarketCap > 0 {
			return samples[i].MarketCap, model.SupplyMarketCap
		}
	}
	return avgVolume * multiplier, model.SupplyEstimated
}

func unavailable(ta model.TokenAssessment, err error) model.TokenAssessment {
	ta.Status = model.StatusUnavailable
	ta.Reason = err.Error()
	return ta
}

// WalletInput is one watched wallet and the result of fetching its history.
type WalletInput struct {
	Name         string
	Address      string
	TokenID      string
	Transactions []model.Transaction
	Err          error
}

// AnalyzeWallets runs the activity analyzer over every wallet, keeping order.
func AnalyzeWallets(inputs []WalletInput, s Settings) []model.WalletActivity {
	out := make([]model.WalletActivity, 0, len(inputs))
	for _, in := range inputs {
		if in.Err != nil {
			out = append(out, model.WalletActivity{
				Wallet:            in.Name,
				Address:           in.Address,
				TokenID:           in.TokenID,
				LargeTransactions: []model.LargeTransaction{},
				Status:            model.StatusUnavailable,
				Reason:            in.Err.Error(),
			})
			continue
		}
		act := wallet.Analyze(in.Name, in.Address, in.Transactions, s.LargeTransaction)
		act.TokenID = in.TokenID
		out = append(out, act)
	}
	return out
}

// VerifyDistributions checks each claimed schedule against the outbound
// transfers of its collector wallets. Transfers between collectors of the
// same schedule are internal moves, not distributions. Specs whose
// collectors could not be fetched are skipped.
func VerifyDistributions(specs []DistributionSpec, wallets []WalletInput, s Settings) []model.DistributionCheck {
	byName := make(map[string]WalletInput, len(wallets))
	for _, w := range wallets {
		byName[w.Name] = w
	}

	checks := make([]model.DistributionCheck, 0, len(specs))
	for _, spec := range specs {
		internal := make(map[string]bool, len(spec.Collectors))
		for _, name := range spec.Collectors {
			if w, ok := byName[name]; ok && w.Address != "" {
				internal[strings.ToLower(w.Address)] = true
			}
		}

		var outbound []model.Transaction
		var collection []model.CollectionSummary
		complete := true
		for _, name := range spec.Collectors {
			w, ok := byName[name]
			if !ok || w.Err != nil {
				complete = false
				break
			}
			_, out := wallet.Partition(w.Transactions)
			for _, tx := range out {
				if !internal[strings.ToLower(tx.Counterparty)] {
					outbound = append(outbound, tx)
				}
			}
			collection = append(collection, distribution.Collect(name, w.Transactions, s.CollectionDays))
		}
		if !complete {
			continue
		}
		check := distribution.Verify(spec.TokenID, spec.Claimed, outbound, s.DistributionTolerancePP)
		check.Collection = collection
		checks = append(checks, check)
	}
	return checks
}
