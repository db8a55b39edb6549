package repository

import (
	"context"

	"github.com/ozidan13/codehub/internal/models"
	"github.com/shopspring/decimal"
)

type WalletRepository struct {
	db DBTX
}

func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

const walletColumns = `id, user_id, balance, created_at, updated_at`

func scanWallet(row interface{ Scan(dest ...any) error }) (*models.Wallet, error) {
	var wallet models.Wallet
	err := row.Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Balance.Decimal,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.db.QueryRow(ctx, query, userID))
}

// Ensure returns the user's wallet, creating an empty one on first use.
func (r *WalletRepository) Ensure(ctx context.Context, userID int64) (*models.Wallet, error) {
	query := `
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + walletColumns
	return scanWallet(r.db.QueryRow(ctx, query, userID))
}

// DebitIfSufficient subtracts amount only when the balance covers it.
// pgx.ErrNoRows means the wallet is missing or short.
func (r *WalletRepository) DebitIfSufficient(
	ctx context.Context,
	userID int64,
	amount decimal.Decimal,
) (*models.Wallet, error) {
	query := `
		UPDATE wallets
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING ` + walletColumns
	return scanWallet(r.db.QueryRow(ctx, query, userID, amount))
}

func (r *WalletRepository) Credit(
	ctx context.Context,
	userID int64,
	amount decimal.Decimal,
) (*models.Wallet, error) {
	query := `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING ` + walletColumns
	return scanWallet(r.db.QueryRow(ctx, query, userID, amount))
}
