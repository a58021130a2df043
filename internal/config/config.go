package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8081"`

	DatabaseURL    string `env:"DATABASE_URL,required"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"production.events"`

	GCPProject       string `env:"GOOGLE_CLOUD_PROJECT,required"`
	GCSBucket        string `env:"GCS_BUCKET"`
	GeminiRegion     string `env:"GEMINI_REGION" envDefault:"global"`
	VeoRegion        string `env:"VEO_REGION" envDefault:"us-central1"`
	TranscoderRegion string `env:"TRANSCODER_REGION" envDefault:"us-central1"`

	AnalyzeModel string `env:"ANALYZE_MODEL" envDefault:"gemini-3-pro-preview"`
	ImageModel   string `env:"STORYBOARD_MODEL" envDefault:"gemini-3-pro-image-preview"`
	VideoModel   string `env:"VIDEO_GEN_MODEL" envDefault:"veo-3.1-generate-preview"`

	SignTTL              time.Duration `env:"SIGN_TTL" envDefault:"60m"`
	SignRefreshThreshold time.Duration `env:"SIGN_REFRESH_THRESHOLD" envDefault:"10m"`

	OutboxInterval  time.Duration `env:"OUTBOX_INTERVAL" envDefault:"2s"`
	OutboxBatchSize int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
}

// Load reads .env when present, then parses the environment into Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.GCSBucket == "" {
		cfg.GCSBucket = cfg.GCPProject + "-studio-assets"
	}
	return cfg, nil
}
