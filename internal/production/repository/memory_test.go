package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
	"github.com/romariotrain/studio-platform/internal/production/models"
)

func newProduction() *models.Production {
	return &models.Production{
		ID:      uuid.New(),
		Title:   "t",
		Concept: "c",
		Status:  models.DraftStatus,
		Scenes:  models.SceneList{},
	}
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	p := newProduction()
	require.NoError(t, repo.Create(ctx, p))
	require.ErrorIs(t, repo.Create(ctx, p), models.ErrConflict)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.GetByID(ctx, uuid.Nil)
	require.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestMemoryRepository_ClonesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	p := newProduction()
	p.Scenes = models.SceneList{{ID: uuid.New(), Status: models.ScenePendingStatus}}
	require.NoError(t, repo.Create(ctx, p))

	// мутация переданного объекта не должна влиять на хранимый
	p.Scenes[0].Status = models.SceneFailedStatus

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.ScenePendingStatus, got.Scenes[0].Status)

	// мутация прочитанного тоже
	got.Scenes[0].Status = models.SceneFailedStatus
	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.ScenePendingStatus, again.Scenes[0].Status)
}

func TestMemoryRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	p := newProduction()
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.UpdateStatus(ctx, p.ID, models.FailedStatus, "boom")
	require.NoError(t, err)
	require.Equal(t, models.FailedStatus, got.Status)
	require.Equal(t, "boom", got.ErrorMessage)

	_, err = repo.UpdateStatus(ctx, uuid.New(), models.FailedStatus, "")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryRepository_AddCostAccumulates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	p := newProduction()
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.AddCost(ctx, p.ID, 0.5))
	require.NoError(t, repo.AddCost(ctx, p.ID, 0.25))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.InDelta(t, 0.75, got.TotalCostUSD, 1e-9)
}

func TestMemoryRepository_ListFiltersArchived(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	a, b := newProduction(), newProduction()
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.SetArchived(ctx, b.ID, true))

	visible, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, a.ID, visible[0].ID)

	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestMemoryRepository_SetStitchJob(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	p := newProduction()
	require.NoError(t, repo.Create(ctx, p))

	ref := &models.StitchRef{Ref: *jobref.New("jobs/j-1", "gs://b/out/")}
	require.NoError(t, repo.SetStitchJob(ctx, p.ID, ref))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "jobs/j-1", got.StitchJob.Handle)

	require.NoError(t, repo.SetStitchJob(ctx, p.ID, nil))
	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, got.StitchJob)
}

func TestMemoryUploadRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUploadRepository()

	u := &models.Upload{
		ID:       uuid.New(),
		FileName: "raw.mp4",
		Status:   models.UploadPending,
	}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.MarkReady(ctx, u.ID, 4096)
	require.NoError(t, err)
	require.Equal(t, models.UploadReady, got.Status)
	require.Equal(t, int64(4096), got.SizeBytes)

	variants := models.VariantList{{Resolution: "480p", Job: *jobref.New("jobs/c-1", "gs://b/c/")}}
	require.NoError(t, repo.UpdateVariants(ctx, u.ID, variants))

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Variants.ByResolution("480p"))

	_, err = repo.MarkReady(ctx, uuid.New(), 1)
	require.ErrorIs(t, err, models.ErrNotFound)
}
