package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ozidan13/codehub/internal/models"
	"github.com/shopspring/decimal"
)

type CreateTransactionInput struct {
	UserID          int64
	Type            models.TransactionType
	Amount          decimal.Decimal
	Status          models.TransactionStatus
	Description     string
	SenderWalletRef *string
	ReceiptURL      *string
}

type TransactionListFilter struct {
	UserID int64
	Status models.TransactionStatus
	Limit  int
	Offset int
}

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, user_id, type, amount, status, description, sender_wallet_ref,
	admin_wallet_ref, receipt_url, created_at, resolved_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Type,
		&txn.Amount.Decimal,
		&txn.Status,
		&txn.Description,
		&txn.SenderWalletRef,
		&txn.AdminWalletRef,
		&txn.ReceiptURL,
		&txn.CreatedAt,
		&txn.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) Create(
	ctx context.Context,
	input CreateTransactionInput,
) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (user_id, type, amount, status, description, sender_wallet_ref, receipt_url, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CASE WHEN $4 = 'PENDING' THEN NULL ELSE NOW() END)
		RETURNING ` + transactionColumns
	return scanTransaction(r.db.QueryRow(
		ctx,
		query,
		input.UserID,
		string(input.Type),
		input.Amount,
		string(input.Status),
		input.Description,
		input.SenderWalletRef,
		input.ReceiptURL,
	))
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

func (r *TransactionRepository) Resolve(
	ctx context.Context,
	id int64,
	currentStatus models.TransactionStatus,
	nextStatus models.TransactionStatus,
	adminWalletRef *string,
) (*models.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $3, admin_wallet_ref = COALESCE($4, admin_wallet_ref), resolved_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + transactionColumns
	return scanTransaction(r.db.QueryRow(ctx, query, id, string(currentStatus), string(nextStatus), adminWalletRef))
}

func (r *TransactionRepository) List(
	ctx context.Context,
	filter TransactionListFilter,
) ([]models.Transaction, int64, error) {
	args := []any{}
	whereParts := []string{}

	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		whereParts = append(whereParts, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(whereParts) > 0 {
		where = "WHERE " + strings.Join(whereParts, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM transactions %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		transactionColumns, where, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}
