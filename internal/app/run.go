package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

type Runner func(ctx context.Context, logger zerolog.Logger) error

// Run wires signal handling around a service entrypoint and returns the
// process exit code. The runner owns its own shutdown: when the context is
// cancelled it must drain and return.
func Run(serviceName string, run Runner) int {
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("starting")

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, logger) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		select {
		case err := <-errCh:
			if err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("shutdown error")
				return 1
			}
		case <-time.After(10 * time.Second):
			logger.Error().Msg("shutdown timed out")
			return 1
		}
		return 0
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("failed")
			return 1
		}
		logger.Info().Msg("stopped")
		return 0
	}
}
