package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/romariotrain/studio-platform/internal/production/models"
)

// ProductionRepository is the document store boundary for productions. Every
// write is a partial-field patch of one document; there are no multi-entity
// transactions. Implementations that support a transactional outbox persist
// the passed events atomically with the patch.
type ProductionRepository interface {
	Create(ctx context.Context, p *models.Production) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Production, error)
	List(ctx context.Context, includeArchived bool) ([]models.Production, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, errorMessage string, events ...models.DomainEvent) (*models.Production, error)
	UpdateScenes(ctx context.Context, id uuid.UUID, scenes models.SceneList, events ...models.DomainEvent) error
	SetStitchJob(ctx context.Context, id uuid.UUID, job *models.StitchRef) error
	SetFinalVideo(ctx context.Context, id uuid.UUID, uri string) error
	// AddCost increments the running total atomically on the storage side.
	AddCost(ctx context.Context, id uuid.UUID, deltaUSD float64) error
	SetSignedURLs(ctx context.Context, id uuid.UUID, urls models.SignedURLMap) error
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
}

// UploadRepository is the document store boundary for upload records.
type UploadRepository interface {
	Create(ctx context.Context, u *models.Upload) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	MarkReady(ctx context.Context, id uuid.UUID, sizeBytes int64) (*models.Upload, error)
	UpdateVariants(ctx context.Context, id uuid.UUID, variants models.VariantList) error
	SetSignedURLs(ctx context.Context, id uuid.UUID, urls models.SignedURLMap) error
}
