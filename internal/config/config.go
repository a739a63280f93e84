package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quiz-results"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8081"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Storage     Storage
	Postgres    Postgres
	Redis       Redis
	Security    Security
	Dispatcher  Dispatcher
	Leaderboard Leaderboard
	QuizCache   QuizCache
	Notify      Notify
	Identity    Identity
	CORS        CORS
}

// Storage selects where results and the submission ledger live.
type Storage struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	// QuizSeedFile is a JSON array of quizzes served by the memory driver.
	QuizSeedFile string `env:"QUIZ_SEED_FILE" envDefault:""`
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders a libpq keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds cache, queue and pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores token verification settings.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:""`
}

// Dispatcher tunes the asynchronous scoring pipeline.
type Dispatcher struct {
	Workers        int           `env:"SUBMISSION_WORKERS" envDefault:"4"`
	QueueKey       string        `env:"SUBMISSION_QUEUE_KEY" envDefault:"results:submissions"`
	DequeueTimeout time.Duration `env:"SUBMISSION_DEQUEUE_TIMEOUT" envDefault:"5s"`
	JobTimeout     time.Duration `env:"SUBMISSION_JOB_TIMEOUT" envDefault:"30s"`
	StaleAfter     time.Duration `env:"SUBMISSION_STALE_AFTER" envDefault:"2m"`
	SweepInterval  time.Duration `env:"SUBMISSION_SWEEP_INTERVAL" envDefault:"30s"`
}

// Leaderboard governs live result pushes to connected players.
type Leaderboard struct {
	LivePush bool `env:"LEADERBOARD_LIVE_PUSH" envDefault:"true"`
}

// QuizCache controls the Redis read-through cache over quiz documents.
type QuizCache struct {
	TTL time.Duration `env:"QUIZ_CACHE_TTL" envDefault:"5m"`
}

// Notify configures result notifications.
type Notify struct {
	MainServiceURL string        `env:"MAIN_SERVICE_URL" envDefault:"http://localhost:5000"`
	Timeout        time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
	Channel        string        `env:"NOTIFY_CHANNEL" envDefault:"results:ready"`
	EmailEnabled   bool          `env:"NOTIFY_EMAIL_ENABLED" envDefault:"true"`
}

// Identity configures display-name lookups against the user service.
type Identity struct {
	BaseURL     string        `env:"IDENTITY_BASE_URL" envDefault:""`
	Timeout     time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"2s"`
	Concurrency int           `env:"IDENTITY_CONCURRENCY" envDefault:"8"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseGroup fills a single config group from the environment.
func ParseGroup(group interface{}) error {
	if err := env.ParseWithOptions(group, env.Options{RequiredIfNoDef: true}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Validate checks rules that depend on more than one field.
func (a *App) Validate() error {
	switch a.Storage.Driver {
	case DriverPostgres:
		if a.Postgres.User == "" || a.Postgres.Password == "" || a.Postgres.Database == "" {
			return errors.New("PG_USER, PG_PASSWORD and PG_DATABASE are required for the postgres storage driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", a.Storage.Driver)
	}
	if a.Dispatcher.Workers <= 0 {
		return errors.New("SUBMISSION_WORKERS must be positive")
	}
	if a.Dispatcher.JobTimeout <= 0 || a.Dispatcher.JobTimeout >= a.Dispatcher.StaleAfter {
		// A job still running past StaleAfter can be claimed by a second worker.
		return fmt.Errorf("SUBMISSION_JOB_TIMEOUT (%s) must be positive and shorter than SUBMISSION_STALE_AFTER (%s)",
			a.Dispatcher.JobTimeout, a.Dispatcher.StaleAfter)
	}
	if a.Identity.BaseURL == "" {
		a.Identity.BaseURL = a.Notify.MainServiceURL
	}
	return nil
}
