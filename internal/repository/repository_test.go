package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/shopspring/decimal"
)

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d scan targets, got %d", len(r.values), len(dest))
	}
	for i := range dest {
		switch target := dest[i].(type) {
		case *int64:
			*target = r.values[i].(int64)
		case *string:
			*target = r.values[i].(string)
		case *bool:
			*target = r.values[i].(bool)
		case **int:
			*target = r.values[i].(*int)
		case **string:
			*target = r.values[i].(*string)
		case **time.Time:
			*target = r.values[i].(*time.Time)
		case *time.Time:
			*target = r.values[i].(time.Time)
		case *decimal.Decimal:
			*target = r.values[i].(decimal.Decimal)
		case *models.TransactionType:
			*target = models.TransactionType(r.values[i].(string))
		case *models.TransactionStatus:
			*target = models.TransactionStatus(r.values[i].(string))
		default:
			return fmt.Errorf("unsupported scan target %T", target)
		}
	}
	return nil
}

type stubDBTX struct {
	queryRowFn func(ctx context.Context, query string, args ...any) stubRow
	execFn     func(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	lastQuery  string
	lastArgs   []any
}

func (db *stubDBTX) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	db.lastQuery = query
	db.lastArgs = args
	if db.execFn == nil {
		return pgconn.CommandTag{}, nil
	}
	return db.execFn(ctx, query, args...)
}

func (db *stubDBTX) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (db *stubDBTX) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	db.lastQuery = query
	db.lastArgs = args
	return db.queryRowFn(ctx, query, args...)
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: EnrollmentUserPlatformKey})

	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected any-constraint match")
	}
	if !IsUniqueViolation(err, EnrollmentUserPlatformKey) {
		t.Fatalf("expected named constraint match")
	}
	if IsUniqueViolation(err, BookingSlotKey) {
		t.Fatalf("expected other constraint to not match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("expected foreign key violation to not match")
	}
	if IsUniqueViolation(pgx.ErrNoRows, "") {
		t.Fatalf("expected plain error to not match")
	}
}

func TestWalletDebitIsConditional(t *testing.T) {
	now := time.Now()
	db := &stubDBTX{
		queryRowFn: func(_ context.Context, query string, _ ...any) stubRow {
			return stubRow{values: []any{int64(1), int64(42), decimal.RequireFromString("100.00"), now, now}}
		},
	}

	wallet, err := NewWalletRepository(db).DebitIfSufficient(context.Background(), 42, decimal.NewFromInt(400))
	if err != nil {
		t.Fatalf("DebitIfSufficient: %v", err)
	}
	if !strings.Contains(db.lastQuery, "balance >= $2") {
		t.Fatalf("expected conditional debit, got %s", db.lastQuery)
	}
	if wallet.Balance.StringFixed(2) != "100.00" {
		t.Fatalf("expected balance 100.00, got %s", wallet.Balance.StringFixed(2))
	}
}

func TestWalletDebitPropagatesShortfall(t *testing.T) {
	db := &stubDBTX{
		queryRowFn: func(_ context.Context, _ string, _ ...any) stubRow {
			return stubRow{err: pgx.ErrNoRows}
		},
	}
	_, err := NewWalletRepository(db).DebitIfSufficient(context.Background(), 42, decimal.NewFromInt(500))
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
}

func TestTransactionResolveMatchesCurrentStatus(t *testing.T) {
	now := time.Now()
	adminRef := "admin-wallet"
	db := &stubDBTX{
		queryRowFn: func(_ context.Context, _ string, _ ...any) stubRow {
			return stubRow{values: []any{
				int64(9), int64(42), "TOP_UP", decimal.NewFromInt(50), "APPROVED", "top-up",
				(*string)(nil), &adminRef, (*string)(nil), now, &now,
			}}
		},
	}

	txn, err := NewTransactionRepository(db).Resolve(
		context.Background(), 9, models.TransactionPending, models.TransactionApproved, &adminRef,
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(db.lastQuery, "WHERE id = $1 AND status = $2") {
		t.Fatalf("expected compare-and-set on status, got %s", db.lastQuery)
	}
	if db.lastArgs[1] != "PENDING" || db.lastArgs[2] != "APPROVED" {
		t.Fatalf("unexpected status args %v", db.lastArgs)
	}
	if txn.Status != models.TransactionApproved {
		t.Fatalf("expected approved, got %s", txn.Status)
	}
}

func TestSlotDeleteOnlyRemovesFreeSlots(t *testing.T) {
	db := &stubDBTX{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("DELETE 0"), nil
		},
	}

	affected, err := NewSlotRepository(db).DeleteIfFree(context.Background(), 5)
	if err != nil {
		t.Fatalf("DeleteIfFree: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 rows, got %d", affected)
	}
	if !strings.Contains(db.lastQuery, "is_booked = FALSE") {
		t.Fatalf("expected booked guard, got %s", db.lastQuery)
	}
}

func TestEnrollmentDeactivateLapsed(t *testing.T) {
	db := &stubDBTX{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 3"), nil
		},
	}
	count, err := NewEnrollmentRepository(db).DeactivateLapsed(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DeactivateLapsed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}
