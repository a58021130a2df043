package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
	"github.com/romariotrain/studio-platform/internal/production/models"
)

func TestStartSceneVideo_PersistsHandleBeforeReturning(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sceneID := uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Status = models.GeneratingStatus
		p.Scenes = models.SceneList{{
			ID:                sceneID,
			VisualDescription: "opening shot",
			TimestampStart:    "00:00",
			TimestampEnd:      "00:06",
			Status:            models.ScenePendingStatus,
			ThumbnailURL:      "gs://test-bucket/frames/a.png",
		}}
	})

	env.gen.On("StartVideoJob", mock.Anything, models.VideoJobRequest{
		Prompt:          "opening shot",
		DurationSeconds: 6,
		Seed:            productionSeed(p.ID),
		AspectRatio:     models.Landscape,
		ImageRef:        "gs://test-bucket/frames/a.png",
	}).Return("operations/op-1", nil).Once()

	sc, err := env.svc.StartSceneVideo(ctx, p.ID, sceneID)
	require.NoError(t, err)
	require.Equal(t, models.SceneGeneratingStatus, sc.Status)
	require.Equal(t, "operations/op-1", sc.OperationName)

	stored, err := env.repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "operations/op-1", stored.Scenes[0].OperationName)
	env.gen.AssertExpectations(t)
}

func TestStartSceneVideo_ConflictWhileInFlight(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sceneID := uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Scenes = models.SceneList{{
			ID:            sceneID,
			Status:        models.SceneGeneratingStatus,
			OperationName: "operations/op-1",
		}}
	})

	_, err := env.svc.StartSceneVideo(ctx, p.ID, sceneID)
	require.ErrorIs(t, err, models.ErrConflict)
	require.Contains(t, err.Error(), "operations/op-1")
	env.gen.AssertNotCalled(t, "StartVideoJob", mock.Anything, mock.Anything)
}

func TestStartSceneVideo_RegenerateReplacesOldResult(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sceneID := uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Scenes = models.SceneList{{
			ID:                sceneID,
			VisualDescription: "reveal",
			Status:            models.SceneCompletedStatus,
			VideoURL:          "gs://test-bucket/old.mp4",
		}}
	})

	env.gen.On("StartVideoJob", mock.Anything, mock.Anything).
		Return("operations/op-2", nil).Once()

	sc, err := env.svc.StartSceneVideo(ctx, p.ID, sceneID)
	require.NoError(t, err)
	require.Equal(t, models.SceneGeneratingStatus, sc.Status)
	require.Empty(t, sc.VideoURL)
	require.Equal(t, "operations/op-2", sc.OperationName)
}

func TestResolveSceneOperation_NoOperationIsNoop(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sceneID := uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Scenes = models.SceneList{completedScene(sceneID, "gs://test-bucket/clip.mp4")}
	})

	sc, err := env.svc.ResolveSceneOperation(ctx, p.ID, sceneID)
	require.NoError(t, err)
	require.Equal(t, models.SceneCompletedStatus, sc.Status)
	env.gen.AssertNotCalled(t, "PollVideoJob", mock.Anything, mock.Anything)
}

func TestResolveSceneOperation_StillProcessing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sceneID := uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Scenes = models.SceneList{{
			ID:            sceneID,
			Status:        models.SceneGeneratingStatus,
			OperationName: "operations/op-1",
		}}
	})

	env.gen.On("PollVideoJob", mock.Anything, "operations/op-1").
		Return(jobref.Outcome{State: jobref.Processing}, nil).Once()

	sc, err := env.svc.ResolveSceneOperation(ctx, p.ID, sceneID)
	require.NoError(t, err)
	require.Equal(t, models.SceneGeneratingStatus, sc.Status)
	require.Equal(t, "operations/op-1", sc.OperationName)
}

func TestResolveSceneOperation_SuccessAppliedOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sceneID := uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Scenes = models.SceneList{{
			ID:            sceneID,
			Status:        models.SceneGeneratingStatus,
			OperationName: "operations/op-1",
		}}
	})

	env.gen.On("PollVideoJob", mock.Anything, "operations/op-1").
		Return(jobref.Outcome{State: jobref.Succeeded, Output: "gs://test-bucket/clip.mp4"}, nil).Once()

	sc, err := env.svc.ResolveSceneOperation(ctx, p.ID, sceneID)
	require.NoError(t, err)
	require.Equal(t, models.SceneCompletedStatus, sc.Status)
	require.Equal(t, "gs://test-bucket/clip.mp4", sc.VideoURL)
	require.Empty(t, sc.OperationName)

	// повторный poll не трогает провайдера: handle уже снят
	sc, err = env.svc.ResolveSceneOperation(ctx, p.ID, sceneID)
	require.NoError(t, err)
	require.Equal(t, models.SceneCompletedStatus, sc.Status)
	env.gen.AssertExpectations(t)
}

func TestResolveSceneOperation_EmptyOutputIsFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sceneID := uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Scenes = models.SceneList{{
			ID:            sceneID,
			Status:        models.SceneGeneratingStatus,
			OperationName: "operations/op-1",
		}}
	})

	// done без результата — это не успех и не "ещё в работе"
	env.gen.On("PollVideoJob", mock.Anything, "operations/op-1").
		Return(jobref.Outcome{State: jobref.Succeeded}, nil).Once()

	sc, err := env.svc.ResolveSceneOperation(ctx, p.ID, sceneID)
	require.NoError(t, err)
	require.Equal(t, models.SceneFailedStatus, sc.Status)
	require.Equal(t, "operation completed without output", sc.ErrorMessage)
	require.Empty(t, sc.VideoURL)
}

func TestResolveSceneOperation_FailureRecordsError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sceneID := uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Scenes = models.SceneList{{
			ID:            sceneID,
			Status:        models.SceneGeneratingStatus,
			OperationName: "operations/op-1",
		}}
	})

	env.gen.On("PollVideoJob", mock.Anything, "operations/op-1").
		Return(jobref.Outcome{State: jobref.Failed, Err: "safety filter"}, nil).Once()

	sc, err := env.svc.ResolveSceneOperation(ctx, p.ID, sceneID)
	require.NoError(t, err)
	require.Equal(t, models.SceneFailedStatus, sc.Status)
	require.Equal(t, "safety filter", sc.ErrorMessage)
}

func TestKickoffRender_DispatchesOnlyPendingScenes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	doneID, pendingID := uuid.New(), uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Status = models.ScriptedStatus
		p.Scenes = models.SceneList{
			completedScene(doneID, "gs://test-bucket/done.mp4"),
			{ID: pendingID, VisualDescription: "closing", Status: models.ScenePendingStatus},
		}
	})

	env.gen.On("StartVideoJob", mock.Anything, mock.MatchedBy(func(req models.VideoJobRequest) bool {
		return req.Prompt == "closing"
	})).Return("operations/op-9", nil).Once()

	got, err := env.svc.KickoffRender(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.GeneratingStatus, got.Status)

	require.Eventually(t, func() bool {
		stored, err := env.repo.GetByID(ctx, p.ID)
		if err != nil {
			return false
		}
		idx, err := stored.SceneIndex(pendingID)
		if err != nil {
			return false
		}
		return stored.Scenes[idx].OperationName == "operations/op-9"
	}, 2*time.Second, 10*time.Millisecond)

	// завершённую сцену не перегенерируем
	stored, err := env.repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	idx, err := stored.SceneIndex(doneID)
	require.NoError(t, err)
	require.Equal(t, models.SceneCompletedStatus, stored.Scenes[idx].Status)
	env.gen.AssertExpectations(t)
}

func TestKickoffRender_RequiresScenes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	p := seedProduction(t, env, func(p *models.Production) { p.Status = models.ScriptedStatus })

	_, err := env.svc.KickoffRender(ctx, p.ID)
	require.ErrorIs(t, err, models.ErrPreconditionFailed)
}

func TestSceneDuration(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{name: "exact six", start: "00:00", end: "00:06", want: 6},
		{name: "snaps down", start: "00:00", end: "00:05", want: 4},
		{name: "long window caps at eight", start: "00:00", end: "00:30", want: 8},
		{name: "plain seconds", start: "0", end: "8", want: 8},
		{name: "missing timestamps default", want: defaultClipDuration},
		{name: "inverted window default", start: "00:10", end: "00:05", want: defaultClipDuration},
		{name: "garbage default", start: "abc", end: "def", want: defaultClipDuration},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sceneDuration(models.Scene{TimestampStart: tc.start, TimestampEnd: tc.end})
			require.Equal(t, tc.want, got)
		})
	}
}

func TestProductionSeed_StableAndNonNegative(t *testing.T) {
	id := uuid.MustParse("4b5ad578-60a3-43c6-b056-a96935b4f2fc")
	first := productionSeed(id)
	require.Equal(t, first, productionSeed(id))
	require.GreaterOrEqual(t, first, int64(0))
	require.LessOrEqual(t, first, int64(0x7FFFFFFF))
}

// Два одновременных dispatch на одну pending-сцену: ровно один живой handle,
// проигравший получает Conflict, а не молча перетирает чужой.
func TestStartSceneVideo_ConcurrentDispatchSingleWinner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sceneID := uuid.New()
	p := seedProduction(t, env, func(p *models.Production) {
		p.Status = models.GeneratingStatus
		p.Scenes = models.SceneList{{
			ID:                sceneID,
			VisualDescription: "opening shot",
			TimestampStart:    "00:00",
			TimestampEnd:      "00:06",
			Status:            models.ScenePendingStatus,
		}}
	})

	// задержка ответа провайдера, чтобы оба вызова прошли предварительную
	// проверку до того, как первый запишет свой handle
	env.gen.On("StartVideoJob", mock.Anything, mock.Anything).
		After(30 * time.Millisecond).Return("operations/op-a", nil).Once()
	env.gen.On("StartVideoJob", mock.Anything, mock.Anything).
		After(30 * time.Millisecond).Return("operations/op-b", nil).Once()

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := env.svc.StartSceneVideo(ctx, p.ID, sceneID)
			errs <- err
		}()
	}

	var wins, conflicts int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrConflict):
			conflicts++
			require.Contains(t, err.Error(), "generation already in progress")
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, conflicts)

	stored, err := env.repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.SceneGeneratingStatus, stored.Scenes[0].Status)
	require.NotEmpty(t, stored.Scenes[0].OperationName)
}
