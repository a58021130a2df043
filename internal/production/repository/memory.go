package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/romariotrain/studio-platform/internal/production/models"
)

// MemoryRepository keeps productions in a map. Used in tests and for local
// runs without postgres; domain events passed to it are dropped since there
// is no outbox to store them in.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*models.Production
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		data: make(map[uuid.UUID]*models.Production),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, p *models.Production) error {
	if p == nil || p.ID == uuid.Nil {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[p.ID]; exists {
		return models.ErrConflict
	}

	// Защитная копия, чтобы внешняя сторона не могла мутировать хранимый объект
	r.data[p.ID] = p.Clone()
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	if id == uuid.Nil {
		return nil, models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *MemoryRepository) List(ctx context.Context, includeArchived bool) ([]models.Production, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Production, 0, len(r.data))
	for _, p := range r.data {
		if p.Archived && !includeArchived {
			continue
		}
		out = append(out, *p.Clone())
	}
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, errorMessage string, _ ...models.DomainEvent) (*models.Production, error) {
	return r.patch(ctx, id, func(p *models.Production) {
		p.Status = status
		p.ErrorMessage = errorMessage
	})
}

func (r *MemoryRepository) UpdateScenes(ctx context.Context, id uuid.UUID, scenes models.SceneList, _ ...models.DomainEvent) error {
	_, err := r.patch(ctx, id, func(p *models.Production) {
		p.Scenes = append(models.SceneList(nil), scenes...)
	})
	return err
}

func (r *MemoryRepository) SetStitchJob(ctx context.Context, id uuid.UUID, job *models.StitchRef) error {
	_, err := r.patch(ctx, id, func(p *models.Production) {
		if job == nil {
			p.StitchJob = nil
			return
		}
		ref := *job
		p.StitchJob = &ref
	})
	return err
}

func (r *MemoryRepository) SetFinalVideo(ctx context.Context, id uuid.UUID, uri string) error {
	_, err := r.patch(ctx, id, func(p *models.Production) {
		p.FinalVideoURL = uri
	})
	return err
}

func (r *MemoryRepository) AddCost(ctx context.Context, id uuid.UUID, deltaUSD float64) error {
	_, err := r.patch(ctx, id, func(p *models.Production) {
		p.TotalCostUSD += deltaUSD
	})
	return err
}

func (r *MemoryRepository) SetSignedURLs(ctx context.Context, id uuid.UUID, urls models.SignedURLMap) error {
	_, err := r.patch(ctx, id, func(p *models.Production) {
		cp := make(models.SignedURLMap, len(urls))
		for k, v := range urls {
			cp[k] = v
		}
		p.SignedURLs = cp
	})
	return err
}

func (r *MemoryRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	_, err := r.patch(ctx, id, func(p *models.Production) {
		p.Archived = archived
	})
	return err
}

func (r *MemoryRepository) patch(ctx context.Context, id uuid.UUID, apply func(*models.Production)) (*models.Production, error) {
	if id == uuid.Nil {
		return nil, models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	apply(p)
	p.UpdatedAt = time.Now()
	return p.Clone(), nil
}

// MemoryUploadRepository is the in-memory counterpart for uploads.
type MemoryUploadRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*models.Upload
}

func NewMemoryUploadRepository() *MemoryUploadRepository {
	return &MemoryUploadRepository{
		data: make(map[uuid.UUID]*models.Upload),
	}
}

func (r *MemoryUploadRepository) Create(ctx context.Context, u *models.Upload) error {
	if u == nil || u.ID == uuid.Nil {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[u.ID]; exists {
		return models.ErrConflict
	}
	r.data[u.ID] = u.Clone()
	return nil
}

func (r *MemoryUploadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	if id == uuid.Nil {
		return nil, models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *MemoryUploadRepository) MarkReady(ctx context.Context, id uuid.UUID, sizeBytes int64) (*models.Upload, error) {
	return r.patch(ctx, id, func(u *models.Upload) {
		u.Status = models.UploadReady
		u.SizeBytes = sizeBytes
	})
}

func (r *MemoryUploadRepository) UpdateVariants(ctx context.Context, id uuid.UUID, variants models.VariantList) error {
	_, err := r.patch(ctx, id, func(u *models.Upload) {
		u.Variants = append(models.VariantList(nil), variants...)
	})
	return err
}

func (r *MemoryUploadRepository) SetSignedURLs(ctx context.Context, id uuid.UUID, urls models.SignedURLMap) error {
	_, err := r.patch(ctx, id, func(u *models.Upload) {
		cp := make(models.SignedURLMap, len(urls))
		for k, v := range urls {
			cp[k] = v
		}
		u.SignedURLs = cp
	})
	return err
}

func (r *MemoryUploadRepository) patch(ctx context.Context, id uuid.UUID, apply func(*models.Upload)) (*models.Upload, error) {
	if id == uuid.Nil {
		return nil, models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	apply(u)
	u.UpdatedAt = time.Now()
	return u.Clone(), nil
}
