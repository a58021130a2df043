package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/romariotrain/studio-platform/internal/production/models"
)

const uploadColumns = `
	id, file_name, object_uri, size_bytes, status, variants, parent_id,
	signed_urls, created_at, updated_at
`

type UploadRepo struct {
	db *sqlx.DB
}

func NewUploadRepo(db *sqlx.DB) *UploadRepo {
	return &UploadRepo{db: db}
}

func (r *UploadRepo) Create(ctx context.Context, u *models.Upload) error {
	const q = `
		INSERT INTO uploads (` + uploadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.FileName, u.ObjectURI, u.SizeBytes, u.Status, u.Variants, u.ParentID,
		u.SignedURLs, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upload create: %w", err)
	}
	return nil
}

func (r *UploadRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	const q = `
		SELECT ` + uploadColumns + `
		FROM uploads
		WHERE id = $1
	`

	var u models.Upload
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("upload get by id: %w", err)
	}
	return &u, nil
}

func (r *UploadRepo) MarkReady(ctx context.Context, id uuid.UUID, sizeBytes int64) (*models.Upload, error) {
	q := `
		UPDATE uploads
		SET status = $2, size_bytes = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + uploadColumns

	var u models.Upload
	if err := r.db.GetContext(ctx, &u, q, id, models.UploadReady, sizeBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("upload mark ready: %w", err)
	}
	return &u, nil
}

// UpdateVariants replaces the whole variant list — same document granularity
// as production scenes.
func (r *UploadRepo) UpdateVariants(ctx context.Context, id uuid.UUID, variants models.VariantList) error {
	const q = `
		UPDATE uploads
		SET variants = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, q, "upload update variants", id, variants)
}

func (r *UploadRepo) SetSignedURLs(ctx context.Context, id uuid.UUID, urls models.SignedURLMap) error {
	const q = `
		UPDATE uploads
		SET signed_urls = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, q, "upload set signed urls", id, urls)
}

func (r *UploadRepo) exec(ctx context.Context, q, what string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}
