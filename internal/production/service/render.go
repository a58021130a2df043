package service

import (
	"context"
	"fmt"
	"hash/adler32"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
	"github.com/romariotrain/studio-platform/internal/production/models"
)

// maxConcurrentDispatches caps the fan-out of video job dispatches for one
// production.
const maxConcurrentDispatches = 4

// allowed clip lengths of the video model
var clipDurations = []int{4, 6, 8}

const defaultClipDuration = 8

// patchScene re-reads the production and applies fn to one scene under the
// scene mutex. The scenes column is one document field, so concurrent
// per-scene writers must not each write their own stale copy of the whole
// list.
func (s *Service) patchScene(ctx context.Context, productionID, sceneID uuid.UUID, fn func(*models.Scene) []models.DomainEvent) (*models.Scene, error) {
	s.sceneMu.Lock()
	defer s.sceneMu.Unlock()

	p, err := s.repo.GetByID(ctx, productionID)
	if err != nil {
		return nil, err
	}
	idx, err := p.SceneIndex(sceneID)
	if err != nil {
		return nil, err
	}
	events := fn(&p.Scenes[idx])
	if err := s.repo.UpdateScenes(ctx, productionID, p.Scenes, events...); err != nil {
		return nil, err
	}
	out := p.Scenes[idx]
	return &out, nil
}

// StartSceneVideo dispatches video generation for one scene and persists the
// returned operation handle before reporting success. A scene with a handle
// that is still in flight refuses a second dispatch; re-generating a
// completed or failed scene is allowed and replaces the old handle.
func (s *Service) StartSceneVideo(ctx context.Context, productionID, sceneID uuid.UUID) (*models.Scene, error) {
	p, err := s.repo.GetByID(ctx, productionID)
	if err != nil {
		return nil, err
	}
	idx, err := p.SceneIndex(sceneID)
	if err != nil {
		return nil, err
	}
	scene := p.Scenes[idx]

	if scene.Status == models.SceneGeneratingStatus && scene.OperationName != "" {
		return nil, fmt.Errorf("scene %s: generation already in progress under %s: %w",
			sceneID, scene.OperationName, models.ErrConflict)
	}
	if err := validateSceneTransition(scene.Status, models.SceneGeneratingStatus); err != nil {
		return nil, err
	}

	prompt := scene.GeneratedPrompt
	if prompt == "" {
		prompt = scene.VisualDescription
	}
	handle, err := s.gen.StartVideoJob(ctx, models.VideoJobRequest{
		Prompt:          prompt,
		DurationSeconds: sceneDuration(scene),
		Seed:            productionSeed(productionID),
		AspectRatio:     p.Orientation,
		ImageRef:        scene.ThumbnailURL,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Stringer("production_id", productionID).
			Stringer("scene_id", sceneID).
			Msg("video dispatch failed")
		return nil, err
	}

	// повторяем проверку под мьютексом: между чтением и dispatch сюда мог
	// успеть параллельный вызов и записать свой handle
	var conflict error
	updated, err := s.patchScene(ctx, productionID, sceneID, func(sc *models.Scene) []models.DomainEvent {
		if sc.OperationName != "" && sc.OperationName != scene.OperationName {
			conflict = fmt.Errorf("scene %s: generation already in progress under %s: %w",
				sceneID, sc.OperationName, models.ErrConflict)
			return nil
		}
		from := sc.Status
		sc.Status = models.SceneGeneratingStatus
		sc.OperationName = handle
		sc.ErrorMessage = ""
		sc.VideoURL = ""
		if from == models.SceneGeneratingStatus {
			return nil
		}
		return []models.DomainEvent{models.NewSceneStatusChanged(productionID, sceneID, from, sc.Status)}
	})
	if err == nil && conflict != nil {
		// наш job уже запущен у провайдера, но отслеживаться не будет
		s.logger.Warn().
			Stringer("scene_id", sceneID).
			Str("operation", handle).
			Msg("concurrent dispatch lost, dropping untracked operation")
		return nil, conflict
	}
	if err != nil {
		// handle потерян — операция продолжит выполняться без отслеживания
		s.logger.Error().Err(err).
			Stringer("scene_id", sceneID).
			Str("operation", handle).
			Msg("failed to persist dispatched operation")
		return nil, err
	}

	s.logger.Info().
		Stringer("production_id", productionID).
		Stringer("scene_id", sceneID).
		Str("operation", handle).
		Msg("scene video dispatched")
	return updated, nil
}

// ResolveSceneOperation polls the scene's outstanding operation and applies
// the outcome exactly once. Calling it on a scene with no outstanding work is
// a no-op that returns the current scene, so clients may poll freely.
func (s *Service) ResolveSceneOperation(ctx context.Context, productionID, sceneID uuid.UUID) (*models.Scene, error) {
	p, err := s.repo.GetByID(ctx, productionID)
	if err != nil {
		return nil, err
	}
	idx, err := p.SceneIndex(sceneID)
	if err != nil {
		return nil, err
	}
	scene := p.Scenes[idx]

	if scene.OperationName == "" {
		out := scene
		return &out, nil
	}

	outcome, err := s.gen.PollVideoJob(ctx, scene.OperationName)
	if err != nil {
		return nil, err
	}
	if outcome.State == jobref.Processing {
		out := scene
		return &out, nil
	}

	return s.patchScene(ctx, productionID, sceneID, func(sc *models.Scene) []models.DomainEvent {
		// другой запрос мог уже применить результат
		if sc.OperationName != scene.OperationName {
			return nil
		}
		from := sc.Status
		sc.OperationName = ""
		switch {
		case outcome.State == jobref.Succeeded && outcome.Output != "":
			sc.Status = models.SceneCompletedStatus
			sc.VideoURL = outcome.Output
			sc.ErrorMessage = ""
		case outcome.State == jobref.Succeeded:
			// выполнено, но без результата — это отказ, не прогресс
			sc.Status = models.SceneFailedStatus
			sc.ErrorMessage = "operation completed without output"
		default:
			sc.Status = models.SceneFailedStatus
			sc.ErrorMessage = outcome.Err
		}
		if from == sc.Status {
			return nil
		}
		return []models.DomainEvent{models.NewSceneStatusChanged(productionID, sceneID, from, sc.Status)}
	})
}

// KickoffRender moves the production to generating and dispatches video jobs
// for every scene that still needs one. Dispatch happens in the background;
// the HTTP caller gets the transition immediately and observes per-scene
// progress by polling.
func (s *Service) KickoffRender(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(p.Scenes) == 0 {
		return nil, fmt.Errorf("production has no scenes: %w", models.ErrPreconditionFailed)
	}
	p, err = s.changeStatus(ctx, p, models.GeneratingStatus, "")
	if err != nil {
		return nil, err
	}

	go s.dispatchPending(context.WithoutCancel(ctx), id)
	return p, nil
}

func (s *Service) dispatchPending(ctx context.Context, id uuid.UUID) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Stringer("production_id", id).Msg("render fan-out aborted")
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDispatches)
	for i := range p.Scenes {
		sc := p.Scenes[i]
		if sc.Status == models.SceneCompletedStatus {
			continue
		}
		if sc.Status == models.SceneGeneratingStatus && sc.OperationName != "" {
			continue
		}
		g.Go(func() error {
			if _, err := s.StartSceneVideo(ctx, id, sc.ID); err != nil {
				s.logger.Error().Err(err).
					Stringer("production_id", id).
					Stringer("scene_id", sc.ID).
					Msg("scene dispatch failed during fan-out")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// productionSeed derives a stable per-production seed so regenerated scenes
// keep a consistent look across dispatches.
func productionSeed(id uuid.UUID) int64 {
	return int64(adler32.Checksum([]byte(id.String())) & 0x7FFFFFFF)
}

// sceneDuration snaps the scene's storyboard window to the nearest clip
// length the video model accepts.
func sceneDuration(scene models.Scene) int {
	start, okStart := parseTimestamp(scene.TimestampStart)
	end, okEnd := parseTimestamp(scene.TimestampEnd)
	if !okStart || !okEnd || end <= start {
		return defaultClipDuration
	}
	want := end - start
	best := defaultClipDuration
	bestDiff := 1 << 30
	for _, d := range clipDurations {
		diff := want - d
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = d, diff
		}
	}
	return best
}

// parseTimestamp accepts "MM:SS" or a plain number of seconds.
func parseTimestamp(ts string) (int, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, false
	}
	if mm, ss, found := strings.Cut(ts, ":"); found {
		m, err1 := strconv.Atoi(mm)
		s, err2 := strconv.Atoi(ss)
		if err1 != nil || err2 != nil || s < 0 || s > 59 || m < 0 {
			return 0, false
		}
		return m*60 + s, true
	}
	n, err := strconv.Atoi(ts)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
