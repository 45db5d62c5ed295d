package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	Env       string `env:"ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	DBDriver     string `env:"DB_DRIVER" envDefault:"postgres"` // postgres | sqlite
	DBHost       string `env:"DB_HOST" envDefault:"localhost"`
	DBPort       string `env:"DB_PORT" envDefault:"5432"`
	DBUser       string `env:"DB_USER"`
	DBPassword   string `env:"DB_PASSWORD"`
	DBName       string `env:"DB_NAME" envDefault:"taskboard"`
	DBTimeZone   string `env:"DB_TIMEZONE" envDefault:"UTC"`
	SQLitePath   string `env:"DB_SQLITE_PATH" envDefault:"taskboard.db"`
	DBLogQueries bool   `env:"DB_LOG_QUERIES" envDefault:"false"`

	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	CORSOrigins     []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	BackendBaseURL  string   `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8080"`
	FrontendBaseURL string   `env:"FRONTEND_BASE_URL" envDefault:"http://localhost:5173"`

	TokenStore     string `env:"TOKEN_STORE" envDefault:"memory"` // valkey | memory
	ValkeyAddr     string `env:"VALKEY_ADDR" envDefault:"localhost:6379"`
	ValkeyPassword string `env:"VALKEY_PASSWORD"`
	ValkeyDB       int    `env:"VALKEY_DB" envDefault:"0"`

	InviteTTL                   time.Duration `env:"INVITE_TTL" envDefault:"48h"`
	InviteCompleteValidateFirst bool          `env:"INVITE_COMPLETE_VALIDATE_FIRST" envDefault:"false"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	SupabaseURL    string `env:"SUPABASE_URL"`
	SupabaseKey    string `env:"SUPABASE_KEY"`
	SupabaseBucket string `env:"SUPABASE_BUCKET" envDefault:"card-attachments"`

	ExportDir string `env:"EXPORT_DIR" envDefault:"./exports"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.TokenStore {
	case "valkey", "memory":
	default:
		return fmt.Errorf("unsupported TOKEN_STORE %q", c.TokenStore)
	}
	if c.InviteTTL <= 0 {
		return fmt.Errorf("INVITE_TTL must be positive")
	}
	return nil
}
