// Package wallet models the user wallet as an append-only transaction
// ledger: the balance is the sum of credits minus the sum of debits.
// Actual fund movement for card/UPI payments is an external collaborator's
// responsibility; this ledger only does the bookkeeping.
package wallet

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned when a debit exceeds the current
// wallet balance.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// TxnType enumerates ledger entry directions.
type TxnType string

const (
	TxnCredit TxnType = "CREDIT"
	TxnDebit  TxnType = "DEBIT"
)

// Transaction is one immutable ledger entry.
type Transaction struct {
	ID          string
	UserID      string
	Type        TxnType
	Amount      decimal.Decimal
	Description string
	Reference   string // e.g. the order number that caused the entry
	CreatedAt   time.Time
}

// Ledger provides wallet bookkeeping. Debits that are part of a checkout
// run inside the checkout transaction (see the storage layer); Credit is
// used for top-ups and cancellation refunds.
type Ledger interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal, description, reference string) error
	Recent(ctx context.Context, userID string, limit int) ([]Transaction, error)
}
