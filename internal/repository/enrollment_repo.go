package repository

import (
	"context"
	"time"

	"github.com/ozidan13/codehub/internal/models"
)

const EnrollmentUserPlatformKey = "enrollments_user_platform_key"

type EnrollmentRepository struct {
	db DBTX
}

func NewEnrollmentRepository(db DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, user_id, platform_id, created_at, expires_at, is_active, last_renewal_at`

func scanEnrollment(row interface{ Scan(dest ...any) error }) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := row.Scan(
		&enrollment.ID,
		&enrollment.UserID,
		&enrollment.PlatformID,
		&enrollment.CreatedAt,
		&enrollment.ExpiresAt,
		&enrollment.IsActive,
		&enrollment.LastRenewalAt,
	)
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) Create(
	ctx context.Context,
	userID int64,
	platformID int64,
	createdAt time.Time,
	expiresAt time.Time,
) (*models.Enrollment, error) {
	query := `
		INSERT INTO enrollments (user_id, platform_id, created_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING ` + enrollmentColumns
	return scanEnrollment(r.db.QueryRow(ctx, query, userID, platformID, createdAt, expiresAt))
}

func (r *EnrollmentRepository) GetByUserAndPlatform(
	ctx context.Context,
	userID int64,
	platformID int64,
) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND platform_id = $2`
	return scanEnrollment(r.db.QueryRow(ctx, query, userID, platformID))
}

// GetForUserForUpdate locks the enrollment row; rows owned by someone else
// are reported as pgx.ErrNoRows.
func (r *EnrollmentRepository) GetForUserForUpdate(
	ctx context.Context,
	enrollmentID int64,
	userID int64,
) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return scanEnrollment(r.db.QueryRow(ctx, query, enrollmentID, userID))
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID int64) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := make([]models.Enrollment, 0)
	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, *enrollment)
	}
	return enrollments, rows.Err()
}

func (r *EnrollmentRepository) Extend(
	ctx context.Context,
	enrollmentID int64,
	expiresAt time.Time,
	renewedAt time.Time,
) (*models.Enrollment, error) {
	query := `
		UPDATE enrollments
		SET expires_at = $2, last_renewal_at = $3, is_active = TRUE
		WHERE id = $1
		RETURNING ` + enrollmentColumns
	return scanEnrollment(r.db.QueryRow(ctx, query, enrollmentID, expiresAt, renewedAt))
}

func (r *EnrollmentRepository) DeactivateLapsed(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE enrollments SET is_active = FALSE WHERE is_active AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
