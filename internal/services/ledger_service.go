package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ozidan13/codehub/internal/database"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Conn is what services need from the pool: plain queries plus the ability
// to open a unit of work. pgx.Tx satisfies it too, so a component bound to
// an outer transaction nests through savepoints.
type Conn interface {
	repository.DBTX
	database.TxStarter
}

type DebitMeta struct {
	Type        models.TransactionType
	Description string
}

type TopUpInput struct {
	Amount          decimal.Decimal
	SenderWalletRef string
	ReceiptURL      *string
}

// Ledger is the only writer of wallet balances.
type Ledger struct {
	db    Conn
	bound bool
	log   zerolog.Logger
}

func NewLedger(db Conn, log zerolog.Logger) *Ledger {
	return &Ledger{db: db, log: log.With().Str("component", "ledger").Logger()}
}

// WithTx binds the ledger to an outer transaction.
func (l *Ledger) WithTx(tx pgx.Tx) *Ledger {
	return &Ledger{db: tx, bound: true, log: l.log}
}

// applied logs a balance change. A ledger bound to an outer transaction
// logs at debug: the caller commits and logs the outcome.
func (l *Ledger) applied() *zerolog.Event {
	if l.bound {
		return l.log.Debug()
	}
	return l.log.Info()
}

func (l *Ledger) Debit(
	ctx context.Context,
	userID int64,
	amount decimal.Decimal,
	meta DebitMeta,
) (*models.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var txn *models.Transaction
	err := database.RunInTx(ctx, l.db, func(tx pgx.Tx) error {
		if _, err := repository.NewWalletRepository(tx).DebitIfSufficient(ctx, userID, amount); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInsufficientBalance
			}
			return err
		}

		created, err := repository.NewTransactionRepository(tx).Create(ctx, repository.CreateTransactionInput{
			UserID:      userID,
			Type:        meta.Type,
			Amount:      amount,
			Status:      models.TransactionApproved,
			Description: meta.Description,
		})
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			l.log.Debug().Int64("user_id", userID).Str("amount", amount.String()).Msg("debit rejected")
		}
		return nil, err
	}

	l.applied().
		Int64("user_id", userID).
		Int64("transaction_id", txn.ID).
		Str("type", string(meta.Type)).
		Str("amount", amount.StringFixed(2)).
		Msg("wallet debited")
	return txn, nil
}

func (l *Ledger) CreditPendingTopUp(
	ctx context.Context,
	userID int64,
	input TopUpInput,
) (*models.Transaction, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	senderRef := strings.TrimSpace(input.SenderWalletRef)
	if senderRef == "" {
		return nil, validationError("senderWalletRef is required")
	}

	var txn *models.Transaction
	err := database.RunInTx(ctx, l.db, func(tx pgx.Tx) error {
		if _, err := repository.NewWalletRepository(tx).Ensure(ctx, userID); err != nil {
			return err
		}
		created, err := repository.NewTransactionRepository(tx).Create(ctx, repository.CreateTransactionInput{
			UserID:          userID,
			Type:            models.TransactionTopUp,
			Amount:          input.Amount,
			Status:          models.TransactionPending,
			Description:     "Wallet top-up from " + senderRef,
			SenderWalletRef: &senderRef,
			ReceiptURL:      input.ReceiptURL,
		})
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ResolveTopUp is ResolveTransaction restricted to TOP_UP rows.
func (l *Ledger) ResolveTopUp(
	ctx context.Context,
	transactionID int64,
	decision models.TransactionStatus,
	adminWalletRef *string,
) (*models.Transaction, error) {
	return l.resolve(ctx, transactionID, decision, adminWalletRef, true)
}

func (l *Ledger) ResolveTransaction(
	ctx context.Context,
	transactionID int64,
	decision models.TransactionStatus,
	adminWalletRef *string,
) (*models.Transaction, error) {
	return l.resolve(ctx, transactionID, decision, adminWalletRef, false)
}

func (l *Ledger) resolve(
	ctx context.Context,
	transactionID int64,
	decision models.TransactionStatus,
	adminWalletRef *string,
	topUpOnly bool,
) (*models.Transaction, error) {
	if decision != models.TransactionApproved && decision != models.TransactionRejected {
		return nil, validationError("status must be APPROVED or REJECTED")
	}
	if adminWalletRef != nil && strings.TrimSpace(*adminWalletRef) == "" {
		adminWalletRef = nil
	}

	var resolved *models.Transaction
	replayed := false
	err := database.RunInTx(ctx, l.db, func(tx pgx.Tx) error {
		transactions := repository.NewTransactionRepository(tx)

		current, err := transactions.GetByIDForUpdate(ctx, transactionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTransactionNotFound
			}
			return err
		}
		if topUpOnly && current.Type != models.TransactionTopUp {
			return ErrTransactionNotFound
		}
		if current.Status != models.TransactionPending {
			if current.Status == decision {
				resolved = current
				replayed = true
				return nil
			}
			return ErrAlreadyResolved
		}

		if decision == models.TransactionApproved && current.Type == models.TransactionTopUp {
			if _, err := repository.NewWalletRepository(tx).Credit(ctx, current.UserID, current.Amount.Decimal); err != nil {
				return err
			}
		}

		updated, err := transactions.Resolve(ctx, transactionID, models.TransactionPending, decision, adminWalletRef)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAlreadyResolved
			}
			return err
		}
		resolved = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		l.applied().
			Int64("transaction_id", resolved.ID).
			Int64("user_id", resolved.UserID).
			Str("status", string(resolved.Status)).
			Msg("transaction resolved")
	}
	return resolved, nil
}

func (l *Ledger) Wallet(ctx context.Context, userID int64, page, limit int) (*models.WalletView, error) {
	if _, err := repository.NewUserRepository(l.db).GetByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithMessage("user %d not found", userID)
		}
		return nil, err
	}

	wallet, err := repository.NewWalletRepository(l.db).Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}

	transactions, total, err := repository.NewTransactionRepository(l.db).List(ctx, repository.TransactionListFilter{
		UserID: userID,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	return &models.WalletView{
		Balance:      wallet.Balance,
		Transactions: transactions,
		Meta:         models.NewPaginationMeta(page, limit, total),
	}, nil
}

func (l *Ledger) ListTransactions(
	ctx context.Context,
	status models.TransactionStatus,
	page, limit int,
) ([]models.Transaction, models.PaginationMeta, error) {
	transactions, total, err := repository.NewTransactionRepository(l.db).List(ctx, repository.TransactionListFilter{
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}
	return transactions, models.NewPaginationMeta(page, limit, total), nil
}

func (l *Ledger) GetTransaction(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	txn, err := repository.NewTransactionRepository(l.db).GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// maxAmount is the first value that no longer fits NUMERIC(14,2).
var maxAmount = decimal.New(1, 12)

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return validationError("amount must be greater than 0")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return validationError("amount must be less than 1000000000000")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Truncate(2)) {
		return validationError("amount supports at most 2 decimal places")
	}
	return nil
}
