package model

import "github.com/shopspring/decimal"

// Account is a single balance record keyed by its identifier.
type Account struct {
	ID      string          `json:"id" yaml:"id"`
	Balance decimal.Decimal `json:"amount" yaml:"amount"`
}
