package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/romariotrain/studio-platform/internal/production/models"
)

// AnalyzeBrief turns the free-form concept into an ordered scene list. The
// production moves to analyzing for the duration of the call; the scene list
// is persisted before the production is marked scripted, so a crash between
// the two leaves a resumable analyzing/failed state rather than a scripted
// production without scenes.
func (s *Service) AnalyzeBrief(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p, err = s.changeStatus(ctx, p, models.AnalyzingStatus, "")
	if err != nil {
		return nil, err
	}

	res, err := s.gen.Analyze(ctx, models.AnalyzeRequest{
		Concept:       p.Concept,
		LengthSeconds: p.LengthSeconds,
		Orientation:   p.Orientation,
	})
	if err != nil {
		s.logger.Error().Err(err).Stringer("production_id", id).Msg("brief analysis failed")
		if _, ferr := s.changeStatus(ctx, p, models.FailedStatus, err.Error()); ferr != nil {
			s.logger.Error().Err(ferr).Stringer("production_id", id).Msg("failed to mark production failed")
		}
		return nil, err
	}
	if len(res.Scenes) == 0 {
		err := fmt.Errorf("analysis produced no scenes: %w", models.ErrUnavailable)
		if _, ferr := s.changeStatus(ctx, p, models.FailedStatus, err.Error()); ferr != nil {
			s.logger.Error().Err(ferr).Stringer("production_id", id).Msg("failed to mark production failed")
		}
		return nil, err
	}

	scenes := make(models.SceneList, 0, len(res.Scenes))
	for _, d := range res.Scenes {
		scenes = append(scenes, models.Scene{
			ID:                s.idGen(),
			VisualDescription: d.VisualDescription,
			TimestampStart:    d.TimestampStart,
			TimestampEnd:      d.TimestampEnd,
			Status:            models.ScenePendingStatus,
		})
	}
	if err := s.repo.UpdateScenes(ctx, id, scenes); err != nil {
		return nil, err
	}
	if res.Usage.CostUSD > 0 {
		if err := s.repo.AddCost(ctx, id, res.Usage.CostUSD); err != nil {
			s.logger.Warn().Err(err).Stringer("production_id", id).Msg("failed to record analysis cost")
		}
	}

	p.Scenes = scenes
	p, err = s.changeStatus(ctx, p, models.ScriptedStatus, "")
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Stringer("production_id", id).
		Int("scenes", len(scenes)).
		Str("model", res.Usage.ModelName).
		Msg("brief analyzed")
	return p, nil
}

// GenerateFrame renders a still thumbnail for one scene and stores it as a
// durable object next to the production's other assets. Regeneration simply
// overwrites the scene's thumbnail reference; old objects are not deleted.
func (s *Service) GenerateFrame(ctx context.Context, productionID, sceneID uuid.UUID) (*models.Scene, error) {
	p, err := s.repo.GetByID(ctx, productionID)
	if err != nil {
		return nil, err
	}
	idx, err := p.SceneIndex(sceneID)
	if err != nil {
		return nil, err
	}
	scene := &p.Scenes[idx]

	prompt := scene.GeneratedPrompt
	if prompt == "" {
		prompt = scene.VisualDescription
	}
	res, err := s.gen.RenderImage(ctx, models.ImageRequest{
		Prompt:      prompt,
		Orientation: p.Orientation,
	})
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("productions/%s/frames/%s%s", productionID, sceneID, imageExt(res.MIMEType))
	ref, err := s.store.Put(ctx, res.Data, path, res.MIMEType)
	if err != nil {
		return nil, err
	}

	updated, err := s.patchScene(ctx, productionID, sceneID, func(sc *models.Scene) []models.DomainEvent {
		sc.ThumbnailURL = ref
		sc.GeneratedPrompt = prompt
		sc.CostUSD += res.Usage.CostUSD
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Usage.CostUSD > 0 {
		if err := s.repo.AddCost(ctx, productionID, res.Usage.CostUSD); err != nil {
			s.logger.Warn().Err(err).Stringer("production_id", productionID).Msg("failed to record frame cost")
		}
	}
	return updated, nil
}

func imageExt(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
