package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/studio-platform/internal/config"
	"github.com/romariotrain/studio-platform/internal/production/httpapi"
	"github.com/romariotrain/studio-platform/internal/production/service"
	"github.com/romariotrain/studio-platform/internal/production/signing"
	"github.com/romariotrain/studio-platform/internal/storage/gcs"
	"github.com/romariotrain/studio-platform/internal/storage/postgres"
	"github.com/romariotrain/studio-platform/internal/transcoder"
	"github.com/romariotrain/studio-platform/internal/vertex"
)

func run(ctx context.Context, logger zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	store, err := gcs.NewClient(ctx, cfg.GCSBucket)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}
	defer store.Close()

	gen, err := vertex.NewClient(ctx, vertex.Config{
		ProjectID:     cfg.GCPProject,
		TextLocation:  cfg.GeminiRegion,
		VideoLocation: cfg.VeoRegion,
		TextModel:     cfg.AnalyzeModel,
		ImageModel:    cfg.ImageModel,
		VideoModel:    cfg.VideoModel,
	})
	if err != nil {
		return fmt.Errorf("init generative client: %w", err)
	}

	trans, err := transcoder.NewClient(ctx, cfg.GCPProject, cfg.TranscoderRegion)
	if err != nil {
		return fmt.Errorf("init transcoder client: %w", err)
	}

	outboxRepo := postgres.NewOutboxRepo(db)
	svc := service.New(service.Deps{
		Repo:       postgres.NewProductionRepo(db, outboxRepo),
		Uploads:    postgres.NewUploadRepo(db),
		Generative: gen,
		Transcoder: trans,
		Store:      store,
		Resolver:   signing.NewResolver(store, cfg.SignTTL, cfg.SignRefreshThreshold),
		Bucket:     cfg.GCSBucket,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewRouter(httpapi.New(svc)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
