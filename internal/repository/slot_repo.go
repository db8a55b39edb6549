package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ozidan13/codehub/internal/models"
)

type SlotListFilter struct {
	From             string
	To               string
	OnlyAvailable    bool
	IncludeTemplates bool
}

type SlotRepository struct {
	db DBTX
}

func NewSlotRepository(db DBTX) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `
	id, to_char(slot_date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	is_booked, is_recurring, day_of_week, created_at`

const oneOffConflict = `ON CONFLICT (slot_date, start_time, end_time) WHERE is_recurring = FALSE DO NOTHING`

func scanSlot(row interface{ Scan(dest ...any) error }) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	err := row.Scan(
		&slot.ID,
		&slot.Date,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsBooked,
		&slot.IsRecurring,
		&slot.DayOfWeek,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func collectSlots(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.TimeSlot, error) {
	slots := make([]models.TimeSlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

// CreateOneOff returns pgx.ErrNoRows when (date, start, end) already exists.
func (r *SlotRepository) CreateOneOff(ctx context.Context, date, start, end string) (*models.TimeSlot, error) {
	query := `
		INSERT INTO time_slots (slot_date, start_time, end_time, is_recurring)
		VALUES ($1::date, $2::time, $3::time, FALSE)
		` + oneOffConflict + `
		RETURNING ` + slotColumns
	return scanSlot(r.db.QueryRow(ctx, query, date, start, end))
}

// CreateTemplate returns pgx.ErrNoRows when the weekly template already exists.
func (r *SlotRepository) CreateTemplate(
	ctx context.Context,
	date, start, end string,
	dayOfWeek int,
) (*models.TimeSlot, error) {
	query := `
		INSERT INTO time_slots (slot_date, start_time, end_time, is_recurring, day_of_week)
		VALUES ($1::date, $2::time, $3::time, TRUE, $4)
		ON CONFLICT (day_of_week, start_time, end_time) WHERE is_recurring = TRUE DO NOTHING
		RETURNING ` + slotColumns
	return scanSlot(r.db.QueryRow(ctx, query, date, start, end, dayOfWeek))
}

// InsertDayBatch inserts every range for one date in a single statement and
// returns only the rows that were actually created.
func (r *SlotRepository) InsertDayBatch(
	ctx context.Context,
	date string,
	ranges []models.TimeRange,
) ([]models.TimeSlot, error) {
	starts := make([]string, 0, len(ranges))
	ends := make([]string, 0, len(ranges))
	for _, tr := range ranges {
		starts = append(starts, tr.StartTime)
		ends = append(ends, tr.EndTime)
	}

	query := `
		INSERT INTO time_slots (slot_date, start_time, end_time, is_recurring)
		SELECT $1::date, r.start_time::time, r.end_time::time, FALSE
		FROM unnest($2::text[], $3::text[]) AS r(start_time, end_time)
		` + oneOffConflict + `
		RETURNING ` + slotColumns
	rows, err := r.db.Query(ctx, query, date, starts, ends)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*models.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1`
	return scanSlot(r.db.QueryRow(ctx, query, id))
}

func (r *SlotRepository) GetOneOff(ctx context.Context, date, start, end string) (*models.TimeSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE slot_date = $1::date AND start_time = $2::time AND end_time = $3::time AND is_recurring = FALSE
	`
	return scanSlot(r.db.QueryRow(ctx, query, date, start, end))
}

// FindOneOffByStart picks the one-off slot that begins at date/start.
func (r *SlotRepository) FindOneOffByStart(ctx context.Context, date, start string) (*models.TimeSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE slot_date = $1::date AND start_time = $2::time AND is_recurring = FALSE
		ORDER BY is_booked ASC, end_time ASC
		LIMIT 1
	`
	return scanSlot(r.db.QueryRow(ctx, query, date, start))
}

// Claim flips an unbooked one-off slot to booked. pgx.ErrNoRows means the
// slot is missing, already booked, or a template.
func (r *SlotRepository) Claim(ctx context.Context, id int64) (*models.TimeSlot, error) {
	query := `
		UPDATE time_slots
		SET is_booked = TRUE
		WHERE id = $1 AND is_booked = FALSE AND is_recurring = FALSE
		RETURNING ` + slotColumns
	return scanSlot(r.db.QueryRow(ctx, query, id))
}

func (r *SlotRepository) Release(ctx context.Context, id int64) (*models.TimeSlot, error) {
	query := `
		UPDATE time_slots
		SET is_booked = FALSE
		WHERE id = $1 AND is_recurring = FALSE
		RETURNING ` + slotColumns
	return scanSlot(r.db.QueryRow(ctx, query, id))
}

func (r *SlotRepository) DeleteIfFree(ctx context.Context, id int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM time_slots WHERE id = $1 AND is_booked = FALSE`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SlotRepository) List(ctx context.Context, filter SlotListFilter) ([]models.TimeSlot, error) {
	args := []any{}
	whereParts := []string{}

	if !filter.IncludeTemplates {
		whereParts = append(whereParts, "is_recurring = FALSE")
	}
	if from := strings.TrimSpace(filter.From); from != "" {
		args = append(args, from)
		whereParts = append(whereParts, fmt.Sprintf("slot_date >= $%d::date", len(args)))
	}
	if to := strings.TrimSpace(filter.To); to != "" {
		args = append(args, to)
		whereParts = append(whereParts, fmt.Sprintf("slot_date <= $%d::date", len(args)))
	}
	if filter.OnlyAvailable {
		whereParts = append(whereParts, "is_booked = FALSE")
	}

	where := ""
	if len(whereParts) > 0 {
		where = "WHERE " + strings.Join(whereParts, " AND ")
	}

	query := `SELECT ` + slotColumns + ` FROM time_slots ` + where + ` ORDER BY slot_date ASC, start_time ASC, id ASC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *SlotRepository) ListTemplates(ctx context.Context) ([]models.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE is_recurring = TRUE ORDER BY day_of_week, start_time`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}
