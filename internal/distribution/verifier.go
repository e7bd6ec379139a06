// Package distribution checks a token's claimed tax split against on-chain transfers.
package distribution

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"TaxSentinel/internal/model"
)

// DefaultTolerancePP is the allowed deviation from a claimed share, in percentage points.
const DefaultTolerancePP = 10.0

var hundred = decimal.NewFromInt(100)

// Schedule maps a recipient address to its claimed fraction of distributed tax.
type Schedule map[string]float64

// Verify compares the claimed schedule with the outbound transfers of the
// collection wallets. Inbound transfers are ignored.
func Verify(tokenID string, claimed Schedule, transfers []model.Transaction, tolerancePP float64) model.DistributionCheck {
	type bucket struct {
		name   string
		amount decimal.Decimal
	}
	actual := make(map[string]*bucket)
	total := decimal.Zero
	for _, tx := range transfers {
		if tx.Direction != model.DirectionOut {
			continue
		}
		key := strings.ToLower(tx.Counterparty)
		b, ok := actual[key]
		if !ok {
			b = &bucket{name: tx.Counterparty, amount: decimal.Zero}
			actual[key] = b
		}
		amt := tx.Amount.Abs()
		b.amount = b.amount.Add(amt)
		total = total.Add(amt)
	}

	check := model.DistributionCheck{
		TokenID:          tokenID,
		TolerancePP:      tolerancePP,
		TotalDistributed: total,
		Recipients:       make([]model.RecipientShare, 0, len(claimed)),
		Anomalies:        make([]model.DistributionAnomaly, 0),
	}

	claimedKeys := make(map[string]bool, len(claimed))
	recipients := make([]string, 0, len(claimed))
	for r := range claimed {
		recipients = append(recipients, r)
	}
	sort.Strings(recipients)

	for _, r := range recipients {
		key := strings.ToLower(r)
		claimedKeys[key] = true

		amount := decimal.Zero
		if b, ok := actual[key]; ok {
			amount = b.amount
		}
		share := RecipientShare(r, claimed[r], amount, total)
		check.Recipients = append(check.Recipients, share)

		switch {
		case amount.IsZero() && claimed[r] > 0:
			check.Anomalies = append(check.Anomalies, anomaly(model.AnomalyMissing, share))
		case !amount.IsZero() && math.Abs(share.DeviationPP) > tolerancePP:
			check.Anomalies = append(check.Anomalies, anomaly(model.AnomalyMismatch, share))
		}
	}

	unclaimed := make([]string, 0)
	for key := range actual {
		if !claimedKeys[key] {
			unclaimed = append(unclaimed, key)
		}
	}
	sort.Strings(unclaimed)
	for _, key := range unclaimed {
		b := actual[key]
		share := RecipientShare(b.name, 0, b.amount, total)
		share.Claimed = false
		check.Recipients = append(check.Recipients, share)
		check.Anomalies = append(check.Anomalies, anomaly(model.AnomalyUnclaimed, share))
	}
	return check
}

// RecipientShare computes the actual share of one recipient and its deviation
// from the claimed fraction.
func RecipientShare(recipient string, claimedFraction float64, amount, total decimal.Decimal) model.RecipientShare {
	actualPct := 0.0
	if total.IsPositive() {
		actualPct = amount.Mul(hundred).Div(total).InexactFloat64()
	}
	claimedPct := claimedFraction * 100
	share := model.RecipientShare{
		Recipient:    recipient,
		ClaimedPct:   claimedPct,
		ActualPct:    actualPct,
		ActualAmount: amount,
		DeviationPP:  actualPct - claimedPct,
		Claimed:      true,
	}
	if claimedPct > 0 {
		rel := share.DeviationPP / claimedPct * 100
		share.DeviationRelPct = &rel
	}
	return share
}

func anomaly(kind string, s model.RecipientShare) model.DistributionAnomaly {
	return model.DistributionAnomaly{
		Kind:        kind,
		Recipient:   s.Recipient,
		ClaimedPct:  s.ClaimedPct,
		ActualPct:   s.ActualPct,
		DeviationPP: s.DeviationPP,
	}
}
