package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenSample is a single price/volume observation for a token.
type TokenSample struct {
	TokenID   string    `json:"token_id"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	MarketCap float64   `json:"market_cap,omitempty"`
}

// Direction is the side of a wallet transfer relative to the watched wallet.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Transaction is an already-decoded wallet transfer. Amount is in native units.
type Transaction struct {
	Hash          string          `json:"hash,omitempty"`
	WalletAddress string          `json:"wallet_address"`
	Counterparty  string          `json:"counterparty"`
	Amount        decimal.Decimal `json:"amount"`
	Direction     Direction       `json:"direction"`
	Timestamp     time.Time       `json:"timestamp"`
}
