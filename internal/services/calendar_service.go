package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ozidan13/codehub/internal/events"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const maxRangesPerRequest = 48

type CalendarConfig struct {
	WeekendDays        []time.Weekday
	RangeMaxDays       int
	RangeWorkers       int
	ReportSkippedSlots bool
}

type SlotInput struct {
	Date        string
	StartTime   string
	EndTime     string
	IsRecurring bool
}

type RangeInput struct {
	StartDate       string
	EndDate         string
	Slots           []models.TimeRange
	ExcludeWeekends bool
}

type SlotListInput struct {
	From          string
	To            string
	OnlyAvailable bool
}

// Calendar is the only writer of time_slots.is_booked.
type Calendar struct {
	db        repository.DBTX
	cfg       CalendarConfig
	publisher events.Publisher
	log       zerolog.Logger
}

func NewCalendar(db repository.DBTX, cfg CalendarConfig, publisher events.Publisher, log zerolog.Logger) *Calendar {
	if cfg.RangeMaxDays <= 0 {
		cfg.RangeMaxDays = 93
	}
	if cfg.RangeWorkers <= 0 {
		cfg.RangeWorkers = 4
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Calendar{
		db:        db,
		cfg:       cfg,
		publisher: publisher,
		log:       log.With().Str("component", "calendar").Logger(),
	}
}

// WithTx binds the calendar to an outer transaction. Events are left to the
// owner of that transaction.
func (c *Calendar) WithTx(tx pgx.Tx) *Calendar {
	return &Calendar{db: tx, cfg: c.cfg, publisher: events.Nop{}, log: c.log}
}

func (c *Calendar) CreateSlot(ctx context.Context, input SlotInput) (*models.TimeSlot, error) {
	date, err := parseSlotDate(input.Date)
	if err != nil {
		return nil, err
	}
	tr, err := normalizeRange(models.TimeRange{StartTime: input.StartTime, EndTime: input.EndTime})
	if err != nil {
		return nil, err
	}

	slots := repository.NewSlotRepository(c.db)
	dateText := date.Format(models.SlotDateLayout)

	var slot *models.TimeSlot
	if input.IsRecurring {
		slot, err = slots.CreateTemplate(ctx, dateText, tr.StartTime, tr.EndTime, int(date.Weekday()))
	} else {
		slot, err = slots.CreateOneOff(ctx, dateText, tr.StartTime, tr.EndTime)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicateSlot
		}
		return nil, err
	}

	c.publisher.Publish(ctx, events.New(events.SlotCreated).ForSlot(slot.ID))
	return slot, nil
}

// ExistingSlot looks up the one-off slot a duplicate CreateSlot collided with.
func (c *Calendar) ExistingSlot(ctx context.Context, input SlotInput) (*models.TimeSlot, error) {
	date, err := parseSlotDate(input.Date)
	if err != nil {
		return nil, err
	}
	tr, err := normalizeRange(models.TimeRange{StartTime: input.StartTime, EndTime: input.EndTime})
	if err != nil {
		return nil, err
	}
	slot, err := repository.NewSlotRepository(c.db).GetOneOff(ctx, date.Format(models.SlotDateLayout), tr.StartTime, tr.EndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return slot, nil
}

func (c *Calendar) CreateBulk(ctx context.Context, date string, ranges []models.TimeRange) (*models.SlotCreateReport, error) {
	day, err := parseSlotDate(date)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeRanges(ranges)
	if err != nil {
		return nil, err
	}

	report := &models.SlotCreateReport{}
	if err := c.insertDay(ctx, repository.NewSlotRepository(c.db), day, normalized, report, &sync.Mutex{}); err != nil {
		return nil, err
	}
	c.publishCreated(ctx, report)
	return report, nil
}

// CreateRange writes one batch per day and runs the batches concurrently, so
// it must be called on a pool-backed calendar.
func (c *Calendar) CreateRange(ctx context.Context, input RangeInput) (*models.SlotCreateReport, error) {
	days, err := c.ExpandRange(input.StartDate, input.EndDate, input.ExcludeWeekends)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeRanges(input.Slots)
	if err != nil {
		return nil, err
	}

	report := &models.SlotCreateReport{}
	var mu sync.Mutex
	slots := repository.NewSlotRepository(c.db)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.RangeWorkers)
	for _, day := range days {
		group.Go(func() error {
			return c.insertDay(groupCtx, slots, day, normalized, report, &mu)
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Skipped, func(i, j int) bool {
		if report.Skipped[i].Date != report.Skipped[j].Date {
			return report.Skipped[i].Date < report.Skipped[j].Date
		}
		return report.Skipped[i].StartTime < report.Skipped[j].StartTime
	})
	c.log.Info().
		Str("start_date", input.StartDate).
		Str("end_date", input.EndDate).
		Int("days", len(days)).
		Int("created", report.CreatedCount).
		Msg("slot range created")
	c.publishCreated(ctx, report)
	return report, nil
}

func (c *Calendar) insertDay(
	ctx context.Context,
	slots *repository.SlotRepository,
	day time.Time,
	ranges []models.TimeRange,
	report *models.SlotCreateReport,
	mu *sync.Mutex,
) error {
	date := day.Format(models.SlotDateLayout)
	created, err := slots.InsertDayBatch(ctx, date, ranges)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	report.CreatedCount += len(created)
	if c.cfg.ReportSkippedSlots {
		report.Skipped = append(report.Skipped, skippedRanges(date, ranges, created)...)
	}
	return nil
}

func (c *Calendar) publishCreated(ctx context.Context, report *models.SlotCreateReport) {
	if report.CreatedCount == 0 {
		return
	}
	event := events.New(events.SlotCreated)
	event.Count = report.CreatedCount
	c.publisher.Publish(ctx, event)
}

// Claim flips a free one-off slot to booked. The caller's transaction owns
// the claim until it commits.
func (c *Calendar) Claim(ctx context.Context, slotID int64) (*models.TimeSlot, error) {
	slots := repository.NewSlotRepository(c.db)
	slot, err := slots.Claim(ctx, slotID)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	existing, lookupErr := slots.GetByID(ctx, slotID)
	switch {
	case errors.Is(lookupErr, pgx.ErrNoRows):
		return nil, ErrSlotNotFound
	case lookupErr != nil:
		return nil, lookupErr
	case existing.IsRecurring:
		return nil, ErrSlotNotClaimable
	default:
		return nil, ErrSlotAlreadyBooked
	}
}

func (c *Calendar) Release(ctx context.Context, slotID int64) (*models.TimeSlot, error) {
	slot, err := repository.NewSlotRepository(c.db).Release(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	c.publisher.Publish(ctx, events.New(events.SlotReleased).ForSlot(slot.ID))
	return slot, nil
}

func (c *Calendar) Delete(ctx context.Context, slotID int64) error {
	slots := repository.NewSlotRepository(c.db)
	affected, err := slots.DeleteIfFree(ctx, slotID)
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := slots.GetByID(ctx, slotID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSlotNotFound
			}
			return err
		}
		return ErrSlotInUse
	}
	c.publisher.Publish(ctx, events.New(events.SlotDeleted).ForSlot(slotID))
	return nil
}

func (c *Calendar) List(ctx context.Context, input SlotListInput) ([]models.TimeSlot, error) {
	for _, value := range []string{input.From, input.To} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := parseSlotDate(value); err != nil {
			return nil, err
		}
	}
	return repository.NewSlotRepository(c.db).List(ctx, repository.SlotListFilter{
		From:          input.From,
		To:            input.To,
		OnlyAvailable: input.OnlyAvailable,
	})
}

func (c *Calendar) Templates(ctx context.Context) ([]models.TimeSlot, error) {
	return repository.NewSlotRepository(c.db).ListTemplates(ctx)
}

// MaterializeRecurring instantiates one-off slots for every weekly template
// over the next weeks, starting at from. Existing slots are left alone.
func (c *Calendar) MaterializeRecurring(ctx context.Context, from time.Time, weeks int) (int, error) {
	if weeks <= 0 {
		return 0, nil
	}
	templates, err := c.Templates(ctx)
	if err != nil {
		return 0, err
	}
	if len(templates) == 0 {
		return 0, nil
	}

	byWeekday := map[time.Weekday][]models.TimeRange{}
	for _, tpl := range templates {
		if tpl.DayOfWeek == nil {
			continue
		}
		day := time.Weekday(*tpl.DayOfWeek)
		byWeekday[day] = append(byWeekday[day], models.TimeRange{StartTime: tpl.StartTime, EndTime: tpl.EndTime})
	}

	start := truncateDay(from)
	slots := repository.NewSlotRepository(c.db)
	report := &models.SlotCreateReport{}
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.RangeWorkers)
	for offset := 0; offset < weeks*7; offset++ {
		day := start.AddDate(0, 0, offset)
		ranges := byWeekday[day.Weekday()]
		if len(ranges) == 0 {
			continue
		}
		group.Go(func() error {
			return c.insertDay(groupCtx, slots, day, ranges, report, &mu)
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	c.publishCreated(ctx, report)
	return report.CreatedCount, nil
}

// ExpandRange lists the calendar days between start and end inclusive,
// optionally without the configured weekend days.
func (c *Calendar) ExpandRange(startDate, endDate string, excludeWeekends bool) ([]time.Time, error) {
	start, err := parseSlotDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := parseSlotDate(endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, validationError("endDate must not be before startDate")
	}
	if span := int(end.Sub(start).Hours()/24) + 1; span > c.cfg.RangeMaxDays {
		return nil, validationError("date range may span at most %d days", c.cfg.RangeMaxDays)
	}

	weekend := map[time.Weekday]bool{}
	if excludeWeekends {
		for _, day := range c.cfg.WeekendDays {
			weekend[day] = true
		}
	}

	days := []time.Time{}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if weekend[day.Weekday()] {
			continue
		}
		days = append(days, day)
	}
	return days, nil
}

func parseSlotDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation(models.SlotDateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, validationError("date must use YYYY-MM-DD")
	}
	return date, nil
}

func parseSlotTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	parsed, err := time.Parse(models.SlotTimeLayout, trimmed)
	if err != nil {
		parsed, err = time.Parse("15:04:05", trimmed)
	}
	if err != nil {
		return time.Time{}, validationError("time must use HH:MM")
	}
	return parsed, nil
}

func normalizeRange(tr models.TimeRange) (models.TimeRange, error) {
	start, err := parseSlotTime(tr.StartTime)
	if err != nil {
		return models.TimeRange{}, err
	}
	end, err := parseSlotTime(tr.EndTime)
	if err != nil {
		return models.TimeRange{}, err
	}
	if !end.After(start) {
		return models.TimeRange{}, validationError("endTime must be after startTime")
	}
	return models.TimeRange{
		StartTime: start.Format(models.SlotTimeLayout),
		EndTime:   end.Format(models.SlotTimeLayout),
	}, nil
}

// normalizeRanges validates every range and drops repeats within one request.
func normalizeRanges(ranges []models.TimeRange) ([]models.TimeRange, error) {
	if len(ranges) == 0 {
		return nil, validationError("at least one time range is required")
	}
	if len(ranges) > maxRangesPerRequest {
		return nil, validationError("at most %d time ranges per request", maxRangesPerRequest)
	}

	seen := map[models.TimeRange]bool{}
	out := make([]models.TimeRange, 0, len(ranges))
	for _, tr := range ranges {
		normalized, err := normalizeRange(tr)
		if err != nil {
			return nil, err
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out, nil
}

func skippedRanges(date string, requested []models.TimeRange, created []models.TimeSlot) []models.SkippedSlot {
	inserted := map[models.TimeRange]bool{}
	for _, slot := range created {
		inserted[models.TimeRange{StartTime: slot.StartTime, EndTime: slot.EndTime}] = true
	}
	skipped := []models.SkippedSlot{}
	for _, tr := range requested {
		if !inserted[tr] {
			skipped = append(skipped, models.SkippedSlot{Date: date, StartTime: tr.StartTime, EndTime: tr.EndTime})
		}
	}
	return skipped
}

func truncateDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
