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

const productionColumns = `
	id, title, concept, length_seconds, orientation, status, scenes,
	final_video_url, stitch_job, total_cost_usd, signed_urls,
	error_message, archived, created_at, updated_at
`

// ProductionRepo stores one row per production document. Scenes, the signed
// URL cache and the stitch job reference live in jsonb columns — a scene
// update is always a whole-list replace, matching the document model.
type ProductionRepo struct {
	db     *sqlx.DB
	outbox *OutboxRepo
}

func NewProductionRepo(db *sqlx.DB, outbox *OutboxRepo) *ProductionRepo {
	return &ProductionRepo{db: db, outbox: outbox}
}

func (r *ProductionRepo) Create(ctx context.Context, p *models.Production) error {
	const q = `
		INSERT INTO productions (` + productionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.Title, p.Concept, p.LengthSeconds, p.Orientation, p.Status, p.Scenes,
		p.FinalVideoURL, p.StitchJob, p.TotalCostUSD, p.SignedURLs,
		p.ErrorMessage, p.Archived, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("production create: %w", err)
	}
	return nil
}

func (r *ProductionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	const q = `
		SELECT ` + productionColumns + `
		FROM productions
		WHERE id = $1
	`

	var p models.Production
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("production get by id: %w", err)
	}

	return &p, nil
}

func (r *ProductionRepo) List(ctx context.Context, includeArchived bool) ([]models.Production, error) {
	q := `
		SELECT ` + productionColumns + `
		FROM productions
	`
	if !includeArchived {
		q += ` WHERE archived = FALSE`
	}
	q += ` ORDER BY created_at DESC`

	var out []models.Production
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("production list: %w", err)
	}
	return out, nil
}

// UpdateStatus patches the status (and error message) and appends the passed
// domain events to the outbox in the same transaction.
func (r *ProductionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, errorMessage string, events ...models.DomainEvent) (*models.Production, error) {
	q := `
		UPDATE productions
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + productionColumns

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var p models.Production
	if err := tx.GetContext(ctx, &p, q, id, status, errorMessage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("production update status: %w", err)
	}

	for _, event := range events {
		if err := r.outbox.Add(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("add outbox: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &p, nil
}

func (r *ProductionRepo) UpdateScenes(ctx context.Context, id uuid.UUID, scenes models.SceneList, events ...models.DomainEvent) error {
	const q = `
		UPDATE productions
		SET scenes = $2, updated_at = NOW()
		WHERE id = $1
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, q, id, scenes)
	if err != nil {
		return fmt.Errorf("production update scenes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	for _, event := range events {
		if err := r.outbox.Add(ctx, tx, event); err != nil {
			return fmt.Errorf("add outbox: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *ProductionRepo) SetStitchJob(ctx context.Context, id uuid.UUID, job *models.StitchRef) error {
	const q = `
		UPDATE productions
		SET stitch_job = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, q, "production set stitch job", id, job)
}

func (r *ProductionRepo) SetFinalVideo(ctx context.Context, id uuid.UUID, uri string) error {
	const q = `
		UPDATE productions
		SET final_video_url = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, q, "production set final video", id, uri)
}

// AddCost folds billing into the running total with an atomic increment on
// the database side. Concurrent scene completions must not lose updates, so
// this is never read-then-write.
func (r *ProductionRepo) AddCost(ctx context.Context, id uuid.UUID, deltaUSD float64) error {
	const q = `
		UPDATE productions
		SET total_cost_usd = total_cost_usd + $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, q, "production add cost", id, deltaUSD)
}

func (r *ProductionRepo) SetSignedURLs(ctx context.Context, id uuid.UUID, urls models.SignedURLMap) error {
	const q = `
		UPDATE productions
		SET signed_urls = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, q, "production set signed urls", id, urls)
}

func (r *ProductionRepo) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	const q = `
		UPDATE productions
		SET archived = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, q, "production set archived", id, archived)
}

func (r *ProductionRepo) exec(ctx context.Context, q, what string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}
