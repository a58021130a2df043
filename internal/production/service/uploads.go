package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
	"github.com/romariotrain/studio-platform/internal/production/models"
)

// uploadPutTTL bounds how long a client has to finish a direct upload.
const uploadPutTTL = 15 * time.Minute

// compressedFileName matches the mux stream key of compression jobs.
const compressedFileName = "compressed.mp4"

func compressOutputPrefix(bucket string, id uuid.UUID, resolution string) string {
	return fmt.Sprintf("gs://%s/uploads/compressed/%s/%s/", bucket, id, resolution)
}

// InitUpload registers a pending upload and hands back a time-limited URL the
// client writes the object to directly. Nothing touches the object store
// until the client does.
func (s *Service) InitUpload(ctx context.Context, fileName, contentType string) (*models.Upload, string, error) {
	if fileName == "" {
		return nil, "", fmt.Errorf("file name is required: %w", models.ErrInvalidArgument)
	}

	id := s.idGen()
	path := fmt.Sprintf("uploads/%s/%s", id, fileName)
	putURL, ref, err := s.store.SignedPutURL(ctx, path, contentType, uploadPutTTL)
	if err != nil {
		return nil, "", err
	}

	now := s.clock()
	u := &models.Upload{
		ID:         id,
		FileName:   fileName,
		ObjectURI:  ref,
		Status:     models.UploadPending,
		Variants:   models.VariantList{},
		SignedURLs: models.SignedURLMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.uploads.Create(ctx, u); err != nil {
		return nil, "", err
	}
	return u, putURL, nil
}

// CompleteUpload verifies the client actually wrote the object and marks the
// upload ready. Completing an already-ready upload is a no-op.
func (s *Service) CompleteUpload(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	u, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Status == models.UploadReady {
		return u, nil
	}

	ok, err := s.store.Exists(ctx, u.ObjectURI)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("object %s was not uploaded: %w", u.ObjectURI, models.ErrPreconditionFailed)
	}
	size, err := s.store.Size(ctx, u.ObjectURI)
	if err != nil {
		s.logger.Warn().Err(err).Stringer("upload_id", id).Msg("failed to read object size")
		size = 0
	}
	return s.uploads.MarkReady(ctx, id, size)
}

// GetUpload returns the upload with its durable reference swapped for a
// fetchable URL.
func (s *Service) GetUpload(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	u, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Status != models.UploadReady {
		return u, nil
	}
	if u.SignedURLs == nil {
		u.SignedURLs = models.SignedURLMap{}
	}
	changed, err := s.resolver.ResolveAll(ctx, u.SignedURLs, &u.ObjectURI)
	if err != nil {
		s.logger.Warn().Err(err).Stringer("upload_id", id).Msg("signed url resolution failed")
		return u, nil
	}
	if changed {
		if err := s.uploads.SetSignedURLs(ctx, id, u.SignedURLs); err != nil {
			s.logger.Warn().Err(err).Stringer("upload_id", id).Msg("failed to persist signed url cache")
		}
	}
	return u, nil
}

// RequestCompression dispatches a transcode of a ready upload to the target
// resolution. One live job per (upload, resolution): a variant whose job is
// still processing or already succeeded refuses a new dispatch, a failed or
// abandoned one is replaced.
func (s *Service) RequestCompression(ctx context.Context, id uuid.UUID, resolution string) (*models.Upload, error) {
	u, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Status != models.UploadReady {
		return nil, fmt.Errorf("upload is %s, must be ready: %w", u.Status, models.ErrPreconditionFailed)
	}

	target := compressOutputPrefix(s.bucket, id, resolution)
	var prior *jobref.Ref
	if v := u.Variants.ByResolution(resolution); v != nil {
		prior = &v.Job
	}
	if err := jobref.CheckDispatch(prior, target); err != nil {
		return nil, fmt.Errorf("%s: %w", err, models.ErrConflict)
	}

	handle, err := s.trans.StartCompress(ctx, u.ObjectURI, target, resolution)
	if err != nil {
		s.logger.Error().Err(err).
			Stringer("upload_id", id).
			Str("resolution", resolution).
			Msg("compression dispatch failed")
		return nil, err
	}

	ref := *jobref.New(handle, target)
	if v := u.Variants.ByResolution(resolution); v != nil {
		v.Job = ref
		v.ChildUploadID = nil
	} else {
		u.Variants = append(u.Variants, models.CompressedVariant{Resolution: resolution, Job: ref})
	}
	if err := s.uploads.UpdateVariants(ctx, id, u.Variants); err != nil {
		s.logger.Error().Err(err).
			Stringer("upload_id", id).
			Str("job", handle).
			Msg("failed to persist compression handle")
		return nil, err
	}

	s.logger.Info().
		Stringer("upload_id", id).
		Str("resolution", resolution).
		Str("job", handle).
		Msg("compression dispatched")
	return u, nil
}

// ResolveCompression polls the variant's job and applies the outcome exactly
// once. A successful job spawns a child upload record for the transcoded
// object, linked back through ParentID.
func (s *Service) ResolveCompression(ctx context.Context, id uuid.UUID, resolution string) (*models.Upload, error) {
	u, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	variant := u.Variants.ByResolution(resolution)
	if variant == nil || variant.Job.Handle == "" {
		return nil, fmt.Errorf("no compression job for %s: %w", resolution, models.ErrPreconditionFailed)
	}
	if variant.Job.Terminal() {
		return u, nil
	}

	outcome, err := s.trans.Poll(ctx, variant.Job.Handle)
	if err != nil {
		return nil, err
	}
	if !variant.Job.Resolve(outcome) {
		return u, nil
	}

	if variant.Job.State == jobref.Succeeded {
		objectURI := variant.Job.Output
		if objectURI == "" {
			objectURI = variant.Job.Target + compressedFileName
		}
		size, err := s.store.Size(ctx, objectURI)
		if err != nil {
			s.logger.Warn().Err(err).Str("object", objectURI).Msg("failed to read compressed object size")
			size = 0
		}
		// id ребёнка детерминирован по (upload, resolution): если прошлая
		// попытка создала запись, но не успела сохранить variants, повторный
		// resolve переиспользует её вместо создания дубликата
		childID := uuid.NewSHA1(u.ID, []byte(resolution))
		child, err := s.uploads.GetByID(ctx, childID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			now := s.clock()
			child = &models.Upload{
				ID:         childID,
				FileName:   fmt.Sprintf("%s_%s", resolution, u.FileName),
				ObjectURI:  objectURI,
				SizeBytes:  size,
				Status:     models.UploadReady,
				Variants:   models.VariantList{},
				ParentID:   &u.ID,
				SignedURLs: models.SignedURLMap{},
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.uploads.Create(ctx, child); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		}
		variant.ChildUploadID = &child.ID
		s.logger.Info().
			Stringer("upload_id", id).
			Stringer("child_id", child.ID).
			Str("resolution", resolution).
			Msg("compression completed")
	} else {
		s.logger.Warn().
			Stringer("upload_id", id).
			Str("resolution", resolution).
			Str("error", variant.Job.Error).
			Msg("compression failed")
	}

	if err := s.uploads.UpdateVariants(ctx, id, u.Variants); err != nil {
		return nil, err
	}
	return u, nil
}
