package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"practice-engine"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Practice Practice
	Reward   Reward
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the keyword/value connection string understood by pgx and goose.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds cache, lock and pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores the secret used to verify access tokens minted by the identity service.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"practice-engine"`
}

// Practice groups session engine defaults.
type Practice struct {
	BatchSize        int            `env:"PRACTICE_BATCH_SIZE" envDefault:"10"`
	Timezone         string         `env:"PRACTICE_TIMEZONE" envDefault:"Asia/Jakarta"`
	TierLimits       map[string]int `env:"PRACTICE_TIER_LIMITS" envSeparator:"," envKeyValSeparator:":" envDefault:"free:3,basic:10,premium:30"`
	DefaultTier      string         `env:"PRACTICE_DEFAULT_TIER" envDefault:"free"`
	QuestionCacheTTL time.Duration  `env:"PRACTICE_QUESTION_CACHE_TTL" envDefault:"10m"`
	LockTTL          time.Duration  `env:"PRACTICE_LOCK_TTL" envDefault:"30s"`
	EventsChannel    string         `env:"PRACTICE_EVENTS_CHANNEL" envDefault:"practice:events"`
}

// Reward configures the external reward service invoked after completion.
type Reward struct {
	ServiceURL  string        `env:"REWARD_SERVICE_URL" envDefault:""`
	APIKey      string        `env:"REWARD_SERVICE_API_KEY" envDefault:""`
	HTTPTimeout time.Duration `env:"REWARD_HTTP_TIMEOUT" envDefault:"5s"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	MaxAge         int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Practice.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPostgres parses only the Postgres group, for tools that need nothing else.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Postgres{}, fmt.Errorf("parse postgres config: %w", err)
	}
	return pg, nil
}

// Location resolves the reference timezone that defines a student's "today".
func (p Practice) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load practice timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

func (p Practice) resolve() error {
	if _, err := p.Location(); err != nil {
		return err
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("PRACTICE_BATCH_SIZE must be positive, got %d", p.BatchSize)
	}
	if _, ok := p.TierLimits[p.DefaultTier]; !ok {
		return fmt.Errorf("default tier %q has no entry in PRACTICE_TIER_LIMITS", p.DefaultTier)
	}
	return nil
}
