package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env  string `yaml:"env" env:"LOG_ENV" env-default:"local" env-description:"Environment: local, dev or prod"`
	Host string `yaml:"host" env:"HOST" env-default:""`
	Port int    `yaml:"port" env:"PORT" env-default:"8080"`

	Database  Database `yaml:"database"`
	SecretKey string   `yaml:"secret_key" env:"SECRET_KEY" env-description:"Key signing session cookies"`
	Session   Session  `yaml:"session"`
	Google    Google   `yaml:"google"`
	Admin     Admin    `yaml:"admin"`
}

type Database struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	Path   string `yaml:"path" env:"DB_PATH" env-default:"expenses.db"`
	URL    string `yaml:"url" env:"DATABASE_URL"`
}

type Session struct {
	Backend      string        `yaml:"backend" env:"SESSION_BACKEND" env-default:"cookie"`
	SecureCookie bool          `yaml:"secure_cookie" env:"SECURE_COOKIE" env-default:"false"`
	Duration     time.Duration `yaml:"duration" env:"SESSION_DURATION" env-default:"720h"`
}

type Google struct {
	ClientID       string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret   string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL    string `yaml:"redirect_url" env:"OAUTH_REDIRECT_URL" env-default:"http://localhost:8080/google_login"`
	RefreshProfile bool   `yaml:"refresh_profile" env:"OAUTH_REFRESH_PROFILE" env-default:"false"`
}

// Admin is an account created at startup when the database has no users.
type Admin struct {
	Email    string `yaml:"email" env:"ADMIN_EMAIL"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
}

// Load reads a .env file if present, then the YAML file named by CONFIG_PATH if set,
// then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if !slices.Contains([]string{"local", "dev", "prod"}, c.Env) {
		problems = append(problems, fmt.Sprintf("invalid env %q: must be local, dev or prod", c.Env))
	}

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			problems = append(problems, "DB_PATH cannot be empty when using the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			problems = append(problems, "DATABASE_URL is required when using the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid database driver %q: must be sqlite or postgres", c.Database.Driver))
	}

	switch c.Session.Backend {
	case "cookie":
		if c.SecretKey == "" {
			problems = append(problems, "SECRET_KEY is required for cookie sessions")
		}
	case "db":
	default:
		problems = append(problems, fmt.Sprintf("invalid session backend %q: must be cookie or db", c.Session.Backend))
	}

	if c.Session.Duration < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid session duration %v: must be at least 1 minute", c.Session.Duration))
	}

	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		problems = append(problems, "ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN is the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == "postgres" {
		return c.Database.URL
	}
	return c.Database.Path
}

// OAuthEnabled reports whether Google sign-in is configured.
func (c *Config) OAuthEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}
