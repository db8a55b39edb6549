package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/rs/zerolog"
)

const receiptURLTTL = time.Hour

var ErrStorageUnavailable = &AppError{Code: "StorageUnavailable", Message: "receipt storage is not configured"}

type RequestTopUpInput struct {
	TopUpInput
	Receipt io.Reader
}

// WalletService is the student-facing side of the ledger: wallet view and
// top-up requests with optional transfer receipts.
type WalletService struct {
	ledger  *Ledger
	storage ReceiptStorage
	log     zerolog.Logger
}

func NewWalletService(ledger *Ledger, storage ReceiptStorage, log zerolog.Logger) *WalletService {
	return &WalletService{
		ledger:  ledger,
		storage: storage,
		log:     log.With().Str("component", "wallet").Logger(),
	}
}

func (s *WalletService) Wallet(ctx context.Context, userID int64, page, limit int) (*models.WalletView, error) {
	return s.ledger.Wallet(ctx, userID, page, limit)
}

func (s *WalletService) RequestTopUp(
	ctx context.Context,
	userID int64,
	input RequestTopUpInput,
) (*models.Transaction, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.SenderWalletRef) == "" {
		return nil, validationError("senderWalletRef is required")
	}

	if input.Receipt != nil {
		if s.storage == nil {
			return nil, ErrStorageUnavailable
		}
		receiptURL, err := s.storage.Upload(ctx, input.Receipt, "receipts/"+strconv.FormatInt(userID, 10), uuid.NewString())
		if err != nil {
			return nil, err
		}
		input.ReceiptURL = &receiptURL
	}

	txn, err := s.ledger.CreditPendingTopUp(ctx, userID, input.TopUpInput)
	if err != nil {
		if input.ReceiptURL != nil {
			if cleanupErr := s.storage.Delete(ctx, *input.ReceiptURL); cleanupErr != nil {
				return nil, errors.Join(err, fmt.Errorf("cleanup failed: %w", cleanupErr))
			}
		}
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Int64("transaction_id", txn.ID).
		Bool("receipt", txn.ReceiptURL != nil).
		Msg("top-up requested")
	return txn, nil
}

// ReceiptURL returns a short-lived link to the receipt attached to a transaction.
func (s *WalletService) ReceiptURL(ctx context.Context, transactionID int64) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}
	txn, err := s.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return "", err
	}
	if txn.ReceiptURL == nil {
		return "", ErrNotFound.WithMessage("transaction has no receipt")
	}
	return s.storage.SignedURL(ctx, *txn.ReceiptURL, receiptURLTTL)
}

func (s *WalletService) Transactions(
	ctx context.Context,
	status models.TransactionStatus,
	page, limit int,
) ([]models.Transaction, models.PaginationMeta, error) {
	return s.ledger.ListTransactions(ctx, status, page, limit)
}

func (s *WalletService) ResolveTransaction(
	ctx context.Context,
	transactionID int64,
	decision models.TransactionStatus,
	adminWalletRef *string,
) (*models.Transaction, error) {
	return s.ledger.ResolveTransaction(ctx, transactionID, decision, adminWalletRef)
}
