package repository

import (
	"context"

	"github.com/ozidan13/codehub/internal/models"
)

// CatalogRepository reads the entities the booking core consumes as plain
// data. Writes to these tables happen elsewhere.
type CatalogRepository struct {
	db DBTX
}

func NewCatalogRepository(db DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetPlatform(ctx context.Context, id int64) (*models.Platform, error) {
	var platform models.Platform
	err := r.db.QueryRow(ctx, `SELECT id, name, price, is_paid FROM platforms WHERE id = $1`, id).Scan(
		&platform.ID,
		&platform.Name,
		&platform.Price.Decimal,
		&platform.IsPaid,
	)
	if err != nil {
		return nil, err
	}
	return &platform, nil
}

func (r *CatalogRepository) GetMentor(ctx context.Context, id int64) (*models.Mentor, error) {
	var mentor models.Mentor
	err := r.db.QueryRow(ctx, `SELECT id, name, rate, is_active FROM mentors WHERE id = $1`, id).Scan(
		&mentor.ID,
		&mentor.Name,
		&mentor.Rate.Decimal,
		&mentor.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &mentor, nil
}

func (r *CatalogRepository) GetRecordedSession(ctx context.Context, id int64) (*models.RecordedSession, error) {
	var session models.RecordedSession
	err := r.db.QueryRow(
		ctx,
		`SELECT id, title, video_link, price, is_active FROM recorded_sessions WHERE id = $1`,
		id,
	).Scan(
		&session.ID,
		&session.Title,
		&session.VideoLink,
		&session.Price.Decimal,
		&session.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
