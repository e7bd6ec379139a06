package wallet

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaxSentinel/internal/model"
)

var t0 = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func tx(dir model.Direction, amount string, counterparty string, offset time.Duration) model.Transaction {
	return model.Transaction{
		WalletAddress: "0xwallet",
		Counterparty:  counterparty,
		Amount:        decimal.RequireFromString(amount),
		Direction:     dir,
		Timestamp:     t0.Add(offset),
	}
}

func TestAnalyze_Empty(t *testing.T) {
	act := Analyze("treasury", "0xwallet", nil, DefaultLargeTransaction)
	assert.Empty(t, act.LargeTransactions)
	assert.True(t, act.NetFlow.IsZero())
	assert.Equal(t, 0, act.TotalTransactions)
	assert.Nil(t, act.Latest)
	assert.Equal(t, model.StatusOK, act.Status)
}

func TestAnalyze_FlagsAndNetFlow(t *testing.T) {
	txs := []model.Transaction{
		tx(model.DirectionIn, "0.01", "0xa", 0),
		tx(model.DirectionIn, "2.5", "0xb", time.Hour),
		tx(model.DirectionOut, "0.05", "0xc", 2*time.Hour),
		tx(model.DirectionOut, "1", "0xd", 30*time.Minute),
	}
	act := Analyze("treasury", "0xwallet", txs, decimal.RequireFromString("0.05"))

	assert.Equal(t, 4, act.TotalTransactions)
	assert.Equal(t, 2, act.Incoming)
	assert.Equal(t, 2, act.Outgoing)
	assert.True(t, act.TotalIn.Equal(decimal.RequireFromString("2.51")))
	assert.True(t, act.TotalOut.Equal(decimal.RequireFromString("1.05")))
	assert.True(t, act.NetFlow.Equal(decimal.RequireFromString("1.46")), act.NetFlow.String())

	require.Len(t, act.LargeTransactions, 3)
	assert.Equal(t, "0xb", act.LargeTransactions[0].Counterparty)
	assert.Equal(t, model.DirectionIn, act.LargeTransactions[0].Direction)
	// threshold is inclusive
	assert.Equal(t, "0xc", act.LargeTransactions[1].Counterparty)
	assert.Equal(t, model.DirectionOut, act.LargeTransactions[1].Direction)
	assert.Equal(t, "treasury", act.LargeTransactions[2].Wallet)

	require.NotNil(t, act.Latest)
	assert.Equal(t, "0xc", act.Latest.Counterparty)
}

func TestPartition_DropsUnknownDirection(t *testing.T) {
	in, out := Partition([]model.Transaction{
		tx(model.DirectionIn, "1", "a", 0),
		tx("sideways", "1", "b", 0),
		tx(model.DirectionOut, "1", "c", 0),
	})
	assert.Len(t, in, 1)
	assert.Len(t, out, 1)
}

func TestNetFlow(t *testing.T) {
	assert.True(t, NetFlow(nil).IsZero())
	got := NetFlow([]model.Transaction{
		tx(model.DirectionOut, "3", "a", 0),
		tx(model.DirectionIn, "1", "b", 0),
	})
	assert.True(t, got.Equal(decimal.NewFromInt(-2)))
}
