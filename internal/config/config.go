package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	GithubToken string `env:"GITHUB_TOKEN,required"`
	BaseURL     string `env:"GITHUB_BASE_URL" envDefault:"https://api.github.com"`

	OutDir  string `env:"OUT_DIR" envDefault:"data"`
	PerPage int    `env:"PER_PAGE" envDefault:"100"`

	// MaxWorkers bounds the REST collection pool. Clones have their own,
	// smaller limit because they are bandwidth-bound rather than CPU-bound.
	MaxWorkers int `env:"MAX_WORKERS" envDefault:"12"`
	MaxClones  int `env:"MAX_CLONES" envDefault:"4"`

	JobTimeout   time.Duration `env:"JOB_TIMEOUT" envDefault:"10m"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`

	RetryBackoffBase     time.Duration `env:"RETRY_BACKOFF_BASE" envDefault:"500ms"`
	SecondaryBackoffBase time.Duration `env:"SECONDARY_BACKOFF_BASE" envDefault:"1s"`
	RateLimitMargin      time.Duration `env:"RATE_LIMIT_MARGIN" envDefault:"1s"`
}

func Load() (*Config, error) {
	// Best effort: a missing .env file is fine, the environment may already
	// be populated.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
