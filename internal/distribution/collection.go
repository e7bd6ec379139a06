package distribution

import (
	"sort"

	"github.com/shopspring/decimal"

	"TaxSentinel/internal/model"
)

// Collect summarises inbound tax collection of a wallet by UTC day and keeps
// the most recent lastDays daily totals.
func Collect(wallet string, txs []model.Transaction, lastDays int) model.CollectionSummary {
	daily := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Direction != model.DirectionIn {
			continue
		}
		day := tx.Timestamp.UTC().Format("2006-01-02")
		amt := tx.Amount.Abs()
		daily[day] = daily[day].Add(amt)
		total = total.Add(amt)
	}

	sum := model.CollectionSummary{
		Wallet:             wallet,
		TotalCollected:     total,
		AvgDailyCollection: decimal.Zero,
		LastDays:           make(map[string]decimal.Decimal),
	}
	if len(daily) == 0 {
		return sum
	}
	sum.AvgDailyCollection = total.Div(decimal.NewFromInt(int64(len(daily))))

	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	if lastDays > 0 && len(days) > lastDays {
		days = days[len(days)-lastDays:]
	}
	for _, d := range days {
		sum.LastDays[d] = daily[d]
	}
	return sum
}
