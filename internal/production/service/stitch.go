package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
	"github.com/romariotrain/studio-platform/internal/production/models"
)

// stitchedFileName matches the mux stream key the transcoder writes under
// the output prefix.
const stitchedFileName = "final.mp4"

func stitchOutputPrefix(bucket string, id uuid.UUID) string {
	return fmt.Sprintf("gs://%s/productions/%s/stitched/", bucket, id)
}

// RequestStitch dispatches assembly of all scene clips into the final video.
// Preconditions: every scene is completed with a clip, and there is no live
// stitch handle for this production. The handle is persisted before the
// production transitions to stitching, so a crash in between leaves a
// resumable reference rather than a stitching production with no job.
func (s *Service) RequestStitch(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(p.Scenes) == 0 {
		return nil, fmt.Errorf("production has no scenes: %w", models.ErrPreconditionFailed)
	}

	inputs := make([]string, 0, len(p.Scenes))
	for i := range p.Scenes {
		sc := &p.Scenes[i]
		if sc.Status != models.SceneCompletedStatus || sc.VideoURL == "" {
			return nil, fmt.Errorf("scene %s is %s, all scenes must be completed: %w",
				sc.ID, sc.Status, models.ErrPreconditionFailed)
		}
		inputs = append(inputs, sc.VideoURL)
	}

	target := stitchOutputPrefix(s.bucket, id)
	var prior *jobref.Ref
	if p.StitchJob != nil {
		prior = &p.StitchJob.Ref
	}
	if err := jobref.CheckDispatch(prior, target); err != nil {
		return nil, fmt.Errorf("%s: %w", err, models.ErrConflict)
	}
	if err := validateTransition(p.Status, models.StitchingStatus); err != nil {
		return nil, err
	}

	handle, err := s.trans.StartStitch(ctx, inputs, target, p.Orientation)
	if err != nil {
		s.logger.Error().Err(err).Stringer("production_id", id).Msg("stitch dispatch failed")
		return nil, err
	}

	ref := &models.StitchRef{Ref: *jobref.New(handle, target)}
	if err := s.repo.SetStitchJob(ctx, id, ref); err != nil {
		s.logger.Error().Err(err).
			Stringer("production_id", id).
			Str("job", handle).
			Msg("failed to persist stitch handle")
		return nil, err
	}
	p.StitchJob = ref

	p, err = s.changeStatus(ctx, p, models.StitchingStatus, "")
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Stringer("production_id", id).
		Str("job", handle).
		Int("inputs", len(inputs)).
		Msg("stitch dispatched")
	return p, nil
}

// ResolveStitch polls the outstanding stitch job and applies the outcome
// exactly once. Polling a production whose job already resolved skips the
// provider and only reconciles the production with the stored outcome.
func (s *Service) ResolveStitch(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.StitchJob == nil || p.StitchJob.Handle == "" {
		return nil, fmt.Errorf("no stitch job to resolve: %w", models.ErrPreconditionFailed)
	}

	if !p.StitchJob.Terminal() {
		outcome, err := s.trans.Poll(ctx, p.StitchJob.Handle)
		if err != nil {
			return nil, err
		}
		if !p.StitchJob.Resolve(outcome) {
			return p, nil
		}
		if err := s.repo.SetStitchJob(ctx, id, p.StitchJob); err != nil {
			return nil, err
		}
	}

	// Статус может отставать от сохранённого исхода (сбой между SetStitchJob
	// и сменой статуса), поэтому финализация выполняется и на повторном
	// опросе уже завершённого job.
	switch p.StitchJob.State {
	case jobref.Succeeded:
		finalURI := p.StitchJob.Output
		if finalURI == "" {
			finalURI = p.StitchJob.Target + stitchedFileName
		}
		if p.FinalVideoURL != finalURI {
			if err := s.repo.SetFinalVideo(ctx, id, finalURI); err != nil {
				return nil, err
			}
			p.FinalVideoURL = finalURI
		}
		if p.Status != models.CompletedStatus {
			p, err = s.changeStatus(ctx, p, models.CompletedStatus, "")
			if err != nil {
				return nil, err
			}
			s.logger.Info().Stringer("production_id", id).Str("final_video", finalURI).Msg("production completed")
		}
	case jobref.Failed:
		if p.Status != models.FailedStatus {
			p, err = s.changeStatus(ctx, p, models.FailedStatus, p.StitchJob.Error)
			if err != nil {
				return nil, err
			}
			s.logger.Warn().Stringer("production_id", id).Str("error", p.StitchJob.Error).Msg("stitch failed")
		}
	}
	return p, nil
}

// AbandonStitch stops tracking the outstanding stitch job and marks the
// production failed so stitching can be re-requested. The provider-side job
// is deleted best-effort; abandonment never blocks on it.
func (s *Service) AbandonStitch(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.StitchJob == nil || p.StitchJob.Handle == "" {
		return nil, fmt.Errorf("no stitch job to abandon: %w", models.ErrPreconditionFailed)
	}
	if !p.StitchJob.Abandon() {
		return p, nil
	}

	if err := s.trans.Delete(ctx, p.StitchJob.Handle); err != nil {
		s.logger.Warn().Err(err).
			Stringer("production_id", id).
			Str("job", p.StitchJob.Handle).
			Msg("failed to delete abandoned job")
	}
	if err := s.repo.SetStitchJob(ctx, id, p.StitchJob); err != nil {
		return nil, err
	}

	if p.Status == models.StitchingStatus {
		p, err = s.changeStatus(ctx, p, models.FailedStatus, "stitch job abandoned")
		if err != nil {
			return nil, err
		}
	}
	s.logger.Info().Stringer("production_id", id).Msg("stitch abandoned")
	return p, nil
}
