// Package wallet classifies wallet transfers and flags large movements.
package wallet

import (
	"github.com/shopspring/decimal"

	"TaxSentinel/internal/model"
)

// DefaultLargeTransaction is the default large-transaction threshold in native units.
var DefaultLargeTransaction = decimal.RequireFromString("0.05")

// Partition splits transactions into inbound and outbound, preserving order.
// Transactions with an unknown direction are dropped.
func Partition(txs []model.Transaction) (in, out []model.Transaction) {
	for _, tx := range txs {
		switch tx.Direction {
		case model.DirectionIn:
			in = append(in, tx)
		case model.DirectionOut:
			out = append(out, tx)
		}
	}
	return in, out
}

// FlagLarge returns every transaction whose absolute amount is at or above threshold.
func FlagLarge(name string, txs []model.Transaction, threshold decimal.Decimal) []model.LargeTransaction {
	flags := make([]model.LargeTransaction, 0)
	for _, tx := range txs {
		if tx.Amount.Abs().LessThan(threshold) {
			continue
		}
		flags = append(flags, model.LargeTransaction{
			Wallet:       name,
			Hash:         tx.Hash,
			Amount:       tx.Amount.Abs(),
			Direction:    tx.Direction,
			Counterparty: tx.Counterparty,
			Timestamp:    tx.Timestamp,
		})
	}
	return flags
}

// NetFlow is sum(inbound) - sum(outbound).
func NetFlow(txs []model.Transaction) decimal.Decimal {
	in, out := Partition(txs)
	return Sum(in).Sub(Sum(out))
}

// Sum adds up absolute transaction amounts.
func Sum(txs []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount.Abs())
	}
	return total
}

// Analyze summarises a wallet's transfers. An empty history yields an empty,
// valid summary with zero net flow.
func Analyze(name, address string, txs []model.Transaction, threshold decimal.Decimal) model.WalletActivity {
	in, out := Partition(txs)
	totalIn, totalOut := Sum(in), Sum(out)

	act := model.WalletActivity{
		Wallet:            name,
		Address:           address,
		TotalTransactions: len(txs),
		Incoming:          len(in),
		Outgoing:          len(out),
		TotalIn:           totalIn,
		TotalOut:          totalOut,
		NetFlow:           totalIn.Sub(totalOut),
		LargeTransactions: FlagLarge(name, txs, threshold),
		Status:            model.StatusOK,
	}

	for i := range txs {
		if act.Latest == nil || txs[i].Timestamp.After(act.Latest.Timestamp) {
			latest := txs[i]
			act.Latest = &latest
		}
	}
	return act
}
