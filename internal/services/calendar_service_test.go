package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/rs/zerolog"
)

func newTestCalendar(db *stubConn) *Calendar {
	return NewCalendar(db, CalendarConfig{
		WeekendDays:  []time.Weekday{time.Friday, time.Saturday},
		RangeMaxDays: 31,
		RangeWorkers: 2,
	}, nil, zerolog.Nop())
}

func TestExpandRangeSkipsConfiguredWeekend(t *testing.T) {
	calendar := newTestCalendar(&stubConn{})

	// 2030-01-06 is a Sunday; the two weeks hold four Friday/Saturday days.
	days, err := calendar.ExpandRange("2030-01-06", "2030-01-19", true)
	if err != nil {
		t.Fatalf("ExpandRange: %v", err)
	}
	if len(days) != 10 {
		t.Fatalf("expected 10 business days, got %d", len(days))
	}
	for _, day := range days {
		if day.Weekday() == time.Friday || day.Weekday() == time.Saturday {
			t.Fatalf("expected weekend day %s to be skipped", day.Format(models.SlotDateLayout))
		}
	}

	all, err := calendar.ExpandRange("2030-01-06", "2030-01-19", false)
	if err != nil {
		t.Fatalf("ExpandRange: %v", err)
	}
	if len(all) != 14 {
		t.Fatalf("expected 14 days, got %d", len(all))
	}
}

func TestExpandRangeValidation(t *testing.T) {
	calendar := newTestCalendar(&stubConn{})

	cases := []struct {
		name       string
		start, end string
	}{
		{"bad start", "2030-13-01", "2030-01-10"},
		{"end before start", "2030-01-10", "2030-01-09"},
		{"too long", "2030-01-01", "2030-03-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := calendar.ExpandRange(tc.start, tc.end, false); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}

	single, err := calendar.ExpandRange("2030-01-06", "2030-01-06", false)
	if err != nil || len(single) != 1 {
		t.Fatalf("expected single day range, got %v, %v", single, err)
	}
}

func TestNormalizeRanges(t *testing.T) {
	ranges, err := normalizeRanges([]models.TimeRange{
		{StartTime: "9:00", EndTime: "10:00"},
		{StartTime: "09:00", EndTime: "10:00:00"},
		{StartTime: "10:00", EndTime: "11:30"},
	})
	if err != nil {
		t.Fatalf("normalizeRanges: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("expected duplicates to collapse into 2 ranges, got %v", ranges)
	}
	if ranges[0].StartTime != "09:00" || ranges[0].EndTime != "10:00" {
		t.Fatalf("expected canonical HH:MM, got %+v", ranges[0])
	}

	if _, err := normalizeRanges(nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty ranges, got %v", err)
	}
	if _, err := normalizeRanges([]models.TimeRange{{StartTime: "10:00", EndTime: "10:00"}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for end == start, got %v", err)
	}
}

func TestSkippedRanges(t *testing.T) {
	requested := []models.TimeRange{{StartTime: "09:00", EndTime: "10:00"}, {StartTime: "10:00", EndTime: "11:00"}}
	created := []models.TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}

	skipped := skippedRanges("2030-01-06", requested, created)
	if len(skipped) != 1 || skipped[0].StartTime != "09:00" || skipped[0].Date != "2030-01-06" {
		t.Fatalf("unexpected skipped entries %+v", skipped)
	}
}

func TestCreateSlotDuplicateIsTyped(t *testing.T) {
	conn := &stubConn{
		queryRowFn: func(query string, _ ...any) stubRow {
			return stubRow{err: pgx.ErrNoRows}
		},
	}
	calendar := newTestCalendar(conn)

	_, err := calendar.CreateSlot(context.Background(), SlotInput{Date: "2030-01-06", StartTime: "09:00", EndTime: "10:00"})
	if !errors.Is(err, ErrDuplicateSlot) {
		t.Fatalf("expected ErrDuplicateSlot, got %v", err)
	}
	if !conn.ran("ON CONFLICT (slot_date, start_time, end_time) WHERE is_recurring = FALSE") {
		t.Fatalf("expected insert-or-ignore on the one-off key")
	}
}

func slotRow(id int64, booked, recurring bool) stubRow {
	return stubRow{values: []any{id, "2030-01-06", "09:00", "10:00", booked, recurring, nilDay, time.Now()}}
}

var nilDay *int

func TestClaimReportsWhyItFailed(t *testing.T) {
	cases := []struct {
		name   string
		lookup stubRow
		want   error
	}{
		{"missing", stubRow{err: pgx.ErrNoRows}, ErrSlotNotFound},
		{"booked", slotRow(4, true, false), ErrSlotAlreadyBooked},
		{"template", slotRow(4, false, true), ErrSlotNotClaimable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := &stubConn{
				queryRowFn: func(query string, _ ...any) stubRow {
					if strings.Contains(query, "UPDATE time_slots") {
						return stubRow{err: pgx.ErrNoRows}
					}
					return tc.lookup
				},
			}
			_, err := newTestCalendar(conn).Claim(context.Background(), 4)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
