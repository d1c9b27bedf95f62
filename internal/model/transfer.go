package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	ID        string
	Sender    string
	Recipient string
	Amount    decimal.Decimal
	Message   string
}

// TransferResult is Committed with both post-transfer balances, or Failed with a reason.
// TransferID is filled in by the ledger.
type TransferResult struct {
	TransferID            string
	Committed             bool
	SenderBalanceAfter    decimal.Decimal
	RecipientBalanceAfter decimal.Decimal
	Reason                Reason
}

func Committed(senderAfter, recipientAfter decimal.Decimal) TransferResult {
	return TransferResult{
		Committed:             true,
		SenderBalanceAfter:    senderAfter,
		RecipientBalanceAfter: recipientAfter,
	}
}

func Failed(reason Reason) TransferResult {
	return TransferResult{Reason: reason}
}

// TransferEvent announces a committed transfer to downstream consumers.
type TransferEvent struct {
	ID                    string          `json:"id"`
	Sender                string          `json:"sender"`
	Recipient             string          `json:"recipient"`
	Amount                decimal.Decimal `json:"amount"`
	Principal             string          `json:"principal"`
	SenderBalanceAfter    decimal.Decimal `json:"sender_balance_after"`
	RecipientBalanceAfter decimal.Decimal `json:"recipient_balance_after"`
	CommittedAt           time.Time       `json:"committed_at"`
}
