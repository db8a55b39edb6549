package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type recurringMaterializer interface {
	MaterializeRecurring(ctx context.Context, from time.Time, weeks int) (int, error)
}

type lapsedExpirer interface {
	ExpireLapsed(ctx context.Context) (int64, error)
}

type Config struct {
	RecurringCron    string
	ExpirySweepCron  string
	RecurringHorizon int
}

// Scheduler runs the background maintenance jobs: materializing recurring
// slot templates and deactivating lapsed enrollments.
type Scheduler struct {
	cfg         Config
	calendar    recurringMaterializer
	enrollments lapsedExpirer
	log         zerolog.Logger
	now         func() time.Time

	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func NewScheduler(cfg Config, calendar recurringMaterializer, enrollments lapsedExpirer, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		calendar:    calendar,
		enrollments: enrollments,
		log:         log.With().Str("component", "jobs").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules both jobs and runs the materializer once immediately so a
// fresh deployment has claimable slots.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runCtx, s.cancel = context.WithCancel(ctx)

	logger := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.cfg.RecurringCron, func() { s.MaterializeOnce(s.runCtx) }); err != nil {
		s.cancel()
		return fmt.Errorf("schedule recurring materializer %q: %w", s.cfg.RecurringCron, err)
	}
	if _, err := c.AddFunc(s.cfg.ExpirySweepCron, func() { s.ExpireOnce(s.runCtx) }); err != nil {
		s.cancel()
		return fmt.Errorf("schedule expiry sweep %q: %w", s.cfg.ExpirySweepCron, err)
	}

	c.Start()
	s.cron = c
	go s.MaterializeOnce(s.runCtx)

	s.log.Info().
		Str("recurring_cron", s.cfg.RecurringCron).
		Str("expiry_cron", s.cfg.ExpirySweepCron).
		Msg("background jobs scheduled")
	return nil
}

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) MaterializeOnce(ctx context.Context) {
	if s.cfg.RecurringHorizon <= 0 {
		return
	}
	created, err := s.calendar.MaterializeRecurring(ctx, s.now(), s.cfg.RecurringHorizon)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("recurring slot materialization failed")
		}
		return
	}
	s.log.Info().Int("created", created).Int("weeks", s.cfg.RecurringHorizon).Msg("recurring slots materialized")
}

func (s *Scheduler) ExpireOnce(ctx context.Context) {
	expired, err := s.enrollments.ExpireLapsed(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("enrollment expiry sweep failed")
		}
		return
	}
	if expired > 0 {
		s.log.Info().Int64("expired", expired).Msg("lapsed enrollments deactivated")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
