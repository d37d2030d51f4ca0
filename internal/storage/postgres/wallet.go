package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chowline/chowline/internal/domain/wallet"
)

const (
	insertWalletCreditSQL = `INSERT INTO wallet_transactions (id, user_id, type, amount, description, reference, created_at)
		VALUES ($1, $2, 'CREDIT', $3, $4, $5, $6)`

	recentWalletTxnsSQL = `SELECT id, user_id, type, amount, description, reference, created_at
		FROM wallet_transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`
)

var _ wallet.Ledger = (*WalletRepository)(nil)

// WalletRepository implements wallet.Ledger backed by PostgreSQL. Debits
// only happen inside the checkout transaction (see OrderRepository); this
// type covers balance reads, credits, and history.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository returns a WalletRepository that uses the given pool.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Balance returns the user's current balance: credits minus debits. A user
// with no ledger entries has a zero balance.
func (r *WalletRepository) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, walletBalanceSQL, userID).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading wallet balance for user %q: %w", userID, err)
	}
	return balance, nil
}

// Credit appends a credit entry for the user.
func (r *WalletRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal, description, reference string) error {
	_, err := r.pool.Exec(ctx, insertWalletCreditSQL,
		uuid.New().String(), userID, amount, description, reference, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("crediting wallet for user %q: %w", userID, err)
	}
	return nil
}

// Recent returns the user's newest ledger entries, most recent first.
func (r *WalletRepository) Recent(ctx context.Context, userID string, limit int) ([]wallet.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.pool.Query(ctx, recentWalletTxnsSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing wallet transactions for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanWalletTxn)
}

func scanWalletTxn(row pgx.CollectableRow) (wallet.Transaction, error) {
	var (
		txn     wallet.Transaction
		txnType string
	)
	err := row.Scan(
		&txn.ID, &txn.UserID, &txnType, &txn.Amount,
		&txn.Description, &txn.Reference, &txn.CreatedAt,
	)
	txn.Type = wallet.TxnType(txnType)
	return txn, err
}
