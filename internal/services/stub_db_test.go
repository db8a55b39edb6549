package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
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
		case *time.Time:
			*target = r.values[i].(time.Time)
		case **time.Time:
			*target = r.values[i].(*time.Time)
		case *decimal.Decimal:
			*target = r.values[i].(decimal.Decimal)
		case *models.TransactionType:
			*target = r.values[i].(models.TransactionType)
		case *models.TransactionStatus:
			*target = r.values[i].(models.TransactionStatus)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

// stubConn routes every QueryRow to queryRowFn and counts transaction outcomes.
type stubConn struct {
	queryRowFn func(query string, args ...any) stubRow
	beginErr   error
	queries    []string
	commits    int
	rollbacks  int
}

func (c *stubConn) Exec(_ context.Context, query string, _ ...any) (pgconn.CommandTag, error) {
	c.queries = append(c.queries, query)
	return pgconn.CommandTag{}, nil
}

func (c *stubConn) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (c *stubConn) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	c.queries = append(c.queries, query)
	return c.queryRowFn(query, args...)
}

func (c *stubConn) Begin(_ context.Context) (pgx.Tx, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	return &stubTx{conn: c}, nil
}

func (c *stubConn) ran(fragment string) bool {
	for _, query := range c.queries {
		if strings.Contains(query, fragment) {
			return true
		}
	}
	return false
}

type stubTx struct {
	pgx.Tx
	conn *stubConn
	done bool
}

func (t *stubTx) Begin(_ context.Context) (pgx.Tx, error) {
	return &stubTx{conn: t.conn}, nil
}

func (t *stubTx) Commit(_ context.Context) error {
	t.done = true
	t.conn.commits++
	return nil
}

func (t *stubTx) Rollback(_ context.Context) error {
	if !t.done {
		t.done = true
		t.conn.rollbacks++
	}
	return nil
}

func (t *stubTx) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, query, args...)
}

func (t *stubTx) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return t.conn.Query(ctx, query, args...)
}

func (t *stubTx) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return t.conn.QueryRow(ctx, query, args...)
}

func walletRow(userID int64, balance string) stubRow {
	now := time.Now()
	return stubRow{values: []any{int64(1), userID, decimal.RequireFromString(balance), now, now}}
}

func transactionRow(id, userID int64, txType models.TransactionType, amount string, status models.TransactionStatus) stubRow {
	now := time.Now()
	var resolvedAt *time.Time
	if status != models.TransactionPending {
		resolvedAt = &now
	}
	return stubRow{values: []any{
		id, userID, txType, decimal.RequireFromString(amount), status, "test",
		(*string)(nil), (*string)(nil), (*string)(nil), now, resolvedAt,
	}}
}

func enrollmentRow(id, userID, platformID int64, createdAt, expiresAt time.Time) stubRow {
	return stubRow{values: []any{id, userID, platformID, createdAt, expiresAt, true, (*time.Time)(nil)}}
}

type stubCatalog struct {
	platform *models.Platform
	mentor   *models.Mentor
	recorded *models.RecordedSession
}

func (s *stubCatalog) GetPlatform(_ context.Context, _ int64) (*models.Platform, error) {
	if s.platform == nil {
		return nil, pgx.ErrNoRows
	}
	return s.platform, nil
}

func (s *stubCatalog) GetMentor(_ context.Context, _ int64) (*models.Mentor, error) {
	if s.mentor == nil {
		return nil, pgx.ErrNoRows
	}
	return s.mentor, nil
}

func (s *stubCatalog) GetRecordedSession(_ context.Context, _ int64) (*models.RecordedSession, error) {
	if s.recorded == nil {
		return nil, pgx.ErrNoRows
	}
	return s.recorded, nil
}
