package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ozidan13/codehub/internal/database"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/repository"
	"github.com/rs/zerolog"
)

const (
	EnrollmentPeriod   = 30 * 24 * time.Hour
	ExpiringSoonWindow = 7 * 24 * time.Hour
)

type platformReader interface {
	GetPlatform(ctx context.Context, id int64) (*models.Platform, error)
}

type EnrollmentConfig struct {
	AllowEarlyRenewal bool
}

type EnrollmentService struct {
	db      Conn
	ledger  *Ledger
	catalog platformReader
	cfg     EnrollmentConfig
	now     func() time.Time
	log     zerolog.Logger
}

func NewEnrollmentService(
	db Conn,
	ledger *Ledger,
	catalog platformReader,
	cfg EnrollmentConfig,
	log zerolog.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		db:      db,
		ledger:  ledger,
		catalog: catalog,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log.With().Str("component", "enrollment").Logger(),
	}
}

// StatusOf derives the enrollment status from its expiry alone.
func StatusOf(expiresAt, now time.Time) models.EnrollmentStatus {
	remaining := expiresAt.Sub(now)
	switch {
	case remaining < 0:
		return models.EnrollmentExpired
	case remaining > 0 && remaining <= ExpiringSoonWindow:
		return models.EnrollmentExpiringSoon
	default:
		return models.EnrollmentActive
	}
}

// DaysRemaining rounds partial days up and never goes below zero.
func DaysRemaining(expiresAt, now time.Time) int {
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

func ViewOf(enrollment models.Enrollment, now time.Time) models.EnrollmentView {
	status := StatusOf(enrollment.ExpiresAt, now)
	return models.EnrollmentView{
		Enrollment:    enrollment,
		IsExpired:     status == models.EnrollmentExpired,
		DaysRemaining: DaysRemaining(enrollment.ExpiresAt, now),
		Status:        status,
	}
}

func (s *EnrollmentService) Enroll(ctx context.Context, userID, platformID int64) (*models.EnrollmentView, error) {
	if platformID <= 0 {
		return nil, validationError("platformId is required")
	}

	platform, err := s.catalog.GetPlatform(ctx, platformID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlatformNotFound
		}
		return nil, err
	}

	now := s.now()
	var enrollment *models.Enrollment
	err = database.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		enrollments := repository.NewEnrollmentRepository(tx)

		if _, err := enrollments.GetByUserAndPlatform(ctx, userID, platformID); err == nil {
			return ErrAlreadyEnrolled
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		if platform.Chargeable() {
			if _, err := s.ledger.WithTx(tx).Debit(ctx, userID, platform.Price.Decimal, DebitMeta{
				Type:        models.TransactionPlatformPurchase,
				Description: "Enrollment in " + platform.Name,
			}); err != nil {
				return err
			}
		}

		created, err := enrollments.Create(ctx, userID, platformID, now, now.Add(EnrollmentPeriod))
		if err != nil {
			if repository.IsUniqueViolation(err, repository.EnrollmentUserPlatformKey) {
				return ErrAlreadyEnrolled
			}
			return err
		}
		enrollment = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", userID).Int64("platform_id", platformID).Msg("enrolled")
	view := ViewOf(*enrollment, now)
	return &view, nil
}

func (s *EnrollmentService) Renew(ctx context.Context, userID, enrollmentID int64) (*models.EnrollmentView, error) {
	if enrollmentID <= 0 {
		return nil, validationError("enrollmentId is required")
	}

	now := s.now()
	var renewed *models.Enrollment
	err := database.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		enrollments := repository.NewEnrollmentRepository(tx)

		current, err := enrollments.GetForUserForUpdate(ctx, enrollmentID, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound.WithMessage("enrollment not found")
			}
			return err
		}

		nextExpiry, err := s.nextExpiry(current, now)
		if err != nil {
			return err
		}

		platform, err := s.catalog.GetPlatform(ctx, current.PlatformID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPlatformNotFound
			}
			return err
		}
		if platform.Chargeable() {
			if _, err := s.ledger.WithTx(tx).Debit(ctx, userID, platform.Price.Decimal, DebitMeta{
				Type:        models.TransactionPlatformPurchase,
				Description: "Renewal of " + platform.Name,
			}); err != nil {
				return err
			}
		}

		renewed, err = enrollments.Extend(ctx, current.ID, nextExpiry, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", userID).Int64("enrollment_id", enrollmentID).Time("expires_at", renewed.ExpiresAt).Msg("enrollment renewed")
	view := ViewOf(*renewed, now)
	return &view, nil
}

// nextExpiry gates renewal: lapsed enrollments restart from now, expiring
// ones extend from their current expiry when early renewal is enabled.
func (s *EnrollmentService) nextExpiry(current *models.Enrollment, now time.Time) (time.Time, error) {
	if now.After(current.ExpiresAt) {
		return now.Add(EnrollmentPeriod), nil
	}
	if s.cfg.AllowEarlyRenewal && StatusOf(current.ExpiresAt, now) == models.EnrollmentExpiringSoon {
		return current.ExpiresAt.Add(EnrollmentPeriod), nil
	}
	return time.Time{}, ErrStillActive
}

func (s *EnrollmentService) List(ctx context.Context, userID int64) ([]models.EnrollmentView, error) {
	enrollments, err := repository.NewEnrollmentRepository(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]models.EnrollmentView, 0, len(enrollments))
	for _, enrollment := range enrollments {
		views = append(views, ViewOf(enrollment, now))
	}
	return views, nil
}

// ExpireLapsed clears isActive on lapsed rows. Status never reads the flag.
func (s *EnrollmentService) ExpireLapsed(ctx context.Context) (int64, error) {
	count, err := repository.NewEnrollmentRepository(s.db).DeactivateLapsed(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info().Int64("count", count).Msg("lapsed enrollments deactivated")
	}
	return count, nil
}
