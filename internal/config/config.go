package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/citizenwallet/feed/internal/storage"
	"github.com/citizenwallet/feed/pkg/indexer"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	IndexerBackendHTTP     = "http"
	IndexerBackendPostgres = "postgres"
)

var ErrUnknownBackend = errors.New("unknown indexer backend")

// Env is the part of the config read from the environment
type Env struct {
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogEncoding string `env:"LOG_ENCODING,default=json"`

	APIKey     string `env:"API_KEY"`
	Port       int    `env:"PORT,default=3000"`
	SentryURL  string `env:"SENTRY_URL"`
	DiscordURL string `env:"DISCORD_URL"`

	IndexerBackend string        `env:"INDEXER_BACKEND,default=http"`
	Account        string        `env:"ACCOUNT"`
	BackfillFrom   string        `env:"BACKFILL_FROM,default=2024-01-01T00:00:00Z"`
	ListenInterval time.Duration `env:"LISTEN_INTERVAL,default=1500ms"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT,default=30s"`

	OpenCollectiveURL    string  `env:"OPENCOLLECTIVE_URL,default=https://api.opencollective.com/graphql/v2"`
	OpenCollectiveAPIKey string  `env:"OPENCOLLECTIVE_API_KEY"`
	GivethURL            string  `env:"GIVETH_URL"`
	AuxRateLimit         float64 `env:"AUX_RATE_LIMIT,default=2"`

	NotificationRetries int `env:"NOTIFICATION_RETRIES,default=3"`
	NotificationBuffer  int `env:"NOTIFICATION_BUFFER,default=100"`
}

type Config struct {
	Env

	// BackfillDate is BackfillFrom parsed
	BackfillDate time.Time

	Community *indexer.CommunityConfig
	Sources   Sources

	// ConfPath is the folder community.json and sources.json are read from
	ConfPath string
}

// New loads the env, then community.json and the optional sources.json from confpath
func New(ctx context.Context, envpath, confpath string) (*Config, error) {
	if envpath != "" {
		err := godotenv.Load(envpath)
		if err != nil {
			return nil, err
		}
	}

	// only Env is processed, the rest of Config is derived from it and the files
	cfg := &Config{}
	err := envconfig.Process(ctx, &cfg.Env)
	if err != nil {
		return nil, err
	}

	return cfg, cfg.load(confpath)
}

func (cfg *Config) load(confpath string) error {
	switch cfg.IndexerBackend {
	case IndexerBackendHTTP, IndexerBackendPostgres:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.IndexerBackend)
	}

	date, err := time.Parse(time.RFC3339, cfg.BackfillFrom)
	if err != nil {
		return fmt.Errorf("BACKFILL_FROM: %w", err)
	}
	cfg.BackfillDate = date

	cfg.ConfPath = confpath

	// does community.json exist
	path := filepath.Join(confpath, "community.json")
	if !storage.Exists(path) {
		return fmt.Errorf("community.json not found")
	}

	// parse community.json
	b, err := storage.Read(path)
	if err != nil {
		return err
	}

	commconf := &indexer.CommunityConfig{}
	err = json.Unmarshal(b, commconf)
	if err != nil {
		return fmt.Errorf("community.json: %w", err)
	}

	if commconf.Token.Address == "" {
		return fmt.Errorf("community.json: missing token address")
	}

	cfg.Community = commconf

	// sources.json is optional, without it only the indexer is synced
	path = filepath.Join(confpath, "sources.json")
	if !storage.Exists(path) {
		cfg.Sources = Sources{}
		return nil
	}

	b, err = storage.Read(path)
	if err != nil {
		return err
	}

	sources, err := ParseSources(b)
	if err != nil {
		return fmt.Errorf("sources.json: %w", err)
	}

	cfg.Sources = sources

	return nil
}

// Path resolves a file named in the config relative to the config folder
func (cfg *Config) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(cfg.ConfPath, name)
}
