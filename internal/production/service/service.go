package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/studio-platform/internal/production/domain"
	"github.com/romariotrain/studio-platform/internal/production/jobref"
	"github.com/romariotrain/studio-platform/internal/production/models"
	"github.com/romariotrain/studio-platform/internal/production/repository"
	"github.com/romariotrain/studio-platform/internal/production/signing"
)

// GenerativeProvider starts and observes generative work. StartVideoJob
// returns a handle the caller must persist before treating the dispatch as
// done; PollVideoJob is a pure read.
type GenerativeProvider interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResult, error)
	RenderImage(ctx context.Context, req models.ImageRequest) (*models.ImageResult, error)
	StartVideoJob(ctx context.Context, req models.VideoJobRequest) (string, error)
	PollVideoJob(ctx context.Context, handle string) (jobref.Outcome, error)
}

// TranscodeProvider starts and observes transcoding jobs.
type TranscodeProvider interface {
	StartStitch(ctx context.Context, inputs []string, outputURI string, orientation models.Orientation) (string, error)
	StartCompress(ctx context.Context, inputURI, outputURI, resolution string) (string, error)
	Poll(ctx context.Context, name string) (jobref.Outcome, error)
	Delete(ctx context.Context, name string) error
}

// ObjectStore is durable blob storage plus time-limited access URLs.
type ObjectStore interface {
	Put(ctx context.Context, data []byte, path, contentType string) (string, error)
	SignedPutURL(ctx context.Context, path, contentType string, ttl time.Duration) (string, string, error)
	Exists(ctx context.Context, ref string) (bool, error)
	Size(ctx context.Context, ref string) (int64, error)
}

type Deps struct {
	Repo       repository.ProductionRepository
	Uploads    repository.UploadRepository
	Generative GenerativeProvider
	Transcoder TranscodeProvider
	Store      ObjectStore
	Resolver   *signing.Resolver
	Bucket     string
	Logger     zerolog.Logger
}

// Service drives productions through their lifecycle. It holds no entity
// state between calls: the document store is the single source of truth, and
// every piece of in-flight external work is represented by a persisted
// handle that any later request can resume from.
type Service struct {
	repo     repository.ProductionRepository
	uploads  repository.UploadRepository
	gen      GenerativeProvider
	trans    TranscodeProvider
	store    ObjectStore
	resolver *signing.Resolver
	bucket   string
	logger   zerolog.Logger
	clock    func() time.Time
	idGen    func() uuid.UUID

	// serializes writers of the per-production scenes column
	sceneMu sync.Mutex
}

func New(deps Deps) *Service {
	return &Service{
		repo:     deps.Repo,
		uploads:  deps.Uploads,
		gen:      deps.Generative,
		trans:    deps.Transcoder,
		store:    deps.Store,
		resolver: deps.Resolver,
		bucket:   deps.Bucket,
		logger:   deps.Logger.With().Str("component", "production_service").Logger(),
		clock:    time.Now,
		idGen:    uuid.New,
	}
}

// CreateProduction creates a new draft. Service owns invariants: id, initial
// status, timestamps, basic validation.
func (s *Service) CreateProduction(ctx context.Context, title, concept string, lengthSeconds int, orientation models.Orientation) (*models.Production, error) {
	if concept == "" || lengthSeconds <= 0 {
		return nil, models.ErrInvalidArgument
	}
	switch orientation {
	case "":
		orientation = models.Landscape
	case models.Landscape, models.Portrait:
	default:
		return nil, fmt.Errorf("orientation %q: %w", orientation, models.ErrInvalidArgument)
	}

	now := s.clock()
	p := &models.Production{
		ID:            s.idGen(),
		Title:         title,
		Concept:       concept,
		LengthSeconds: lengthSeconds,
		Orientation:   orientation,
		Status:        models.DraftStatus,
		Scenes:        models.SceneList{},
		SignedURLs:    models.SignedURLMap{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduction returns the document with durable references swapped for
// fetchable URLs in the response. A mutated URL cache is written back so
// later readers skip the signing call.
func (s *Service) GetProduction(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	if id == uuid.Nil {
		return nil, models.ErrInvalidArgument
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.SignedURLs == nil {
		p.SignedURLs = models.SignedURLMap{}
	}
	refs := []*string{&p.FinalVideoURL}
	for i := range p.Scenes {
		refs = append(refs, &p.Scenes[i].ThumbnailURL, &p.Scenes[i].VideoURL)
	}

	changed, err := s.resolver.ResolveAll(ctx, p.SignedURLs, refs...)
	if err != nil {
		// Отдаём документ с durable-ссылками, подпись не critical path
		s.logger.Warn().Err(err).Stringer("production_id", id).Msg("signed url resolution failed")
		return p, nil
	}
	if changed {
		if err := s.repo.SetSignedURLs(ctx, id, p.SignedURLs); err != nil {
			s.logger.Warn().Err(err).Stringer("production_id", id).Msg("failed to persist signed url cache")
		}
	}
	return p, nil
}

func (s *Service) ListProductions(ctx context.Context, includeArchived bool) ([]models.Production, error) {
	return s.repo.List(ctx, includeArchived)
}

func (s *Service) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	if id == uuid.Nil {
		return models.ErrInvalidArgument
	}
	return s.repo.SetArchived(ctx, id, archived)
}

func toDomainStatus(st models.Status) (domain.Status, error) {
	switch st {
	case models.DraftStatus:
		return domain.Draft, nil
	case models.AnalyzingStatus:
		return domain.Analyzing, nil
	case models.ScriptedStatus:
		return domain.Scripted, nil
	case models.GeneratingStatus:
		return domain.Generating, nil
	case models.StitchingStatus:
		return domain.Stitching, nil
	case models.CompletedStatus:
		return domain.Completed, nil
	case models.FailedStatus:
		return domain.Failed, nil
	default:
		return "", fmt.Errorf("unknown status: %s", st)
	}
}

func toDomainSceneStatus(st models.SceneStatus) (domain.SceneStatus, error) {
	switch st {
	case models.ScenePendingStatus:
		return domain.ScenePending, nil
	case models.SceneGeneratingStatus:
		return domain.SceneGenerating, nil
	case models.SceneCompletedStatus:
		return domain.SceneCompleted, nil
	case models.SceneFailedStatus:
		return domain.SceneFailed, nil
	default:
		return "", fmt.Errorf("unknown scene status: %s", st)
	}
}

// validateTransition checks the production lifecycle rules without touching
// storage.
func validateTransition(from, to models.Status) error {
	fromDom, err := toDomainStatus(from)
	if err != nil {
		return err
	}
	toDom, err := toDomainStatus(to)
	if err != nil {
		return err
	}
	return domain.ValidateTransition(fromDom, toDom)
}

func validateSceneTransition(from, to models.SceneStatus) error {
	fromDom, err := toDomainSceneStatus(from)
	if err != nil {
		return err
	}
	toDom, err := toDomainSceneStatus(to)
	if err != nil {
		return err
	}
	return domain.ValidateSceneTransition(fromDom, toDom)
}

// changeStatus validates and applies a production transition, emitting the
// status change event atomically with the patch.
func (s *Service) changeStatus(ctx context.Context, p *models.Production, to models.Status, errorMessage string) (*models.Production, error) {
	if err := validateTransition(p.Status, to); err != nil {
		return nil, err
	}
	if p.Status == to {
		return p, nil
	}
	event := models.NewProductionStatusChanged(p.ID, p.Status, to)
	return s.repo.UpdateStatus(ctx, p.ID, to, errorMessage, event)
}
