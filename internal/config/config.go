package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultJWTSecret is only accepted when APP_ENV=dev.
const DefaultJWTSecret = "dev_secret_change_me"

// Absent-letter policies applied by the HTTP layer before AddLetter.
const (
	AbsentAllow  = "allow"  // no check
	AbsentIgnore = "ignore" // drop the letter, report a hint
	AbsentReject = "reject" // answer 422
)

// Config describes all runtime settings for the server. It is loaded once in
// main and handed down explicitly.
type Config struct {
	Env string // dev|prod

	Log struct {
		Level  string
		Format string // console|json
	}

	HTTP struct {
		Addr              string
		ReadHeaderTimeout time.Duration
		HandlerTimeout    time.Duration
		ShutdownTimeout   time.Duration
		ClientOrigin      string
	}

	DB struct {
		Path string
	}

	Session struct {
		Backend string // memory|redis
		TTL     time.Duration
	}

	Redis struct {
		Addr string
		DB   int
	}

	Auth struct {
		Secret     string
		ExpiresIn  time.Duration
		CookieName string
	}

	Game struct {
		AbsentLetterPolicy string
	}

	Words struct {
		AnswersFile string
		AllowedFile string
	}

	Sentry struct {
		DSN         string
		Environment string
		Release     string
		Debug       bool
	}
}

// Production reports whether cookies must be Secure/SameSite=None.
func (c Config) Production() bool { return c.Env == "prod" }

// Load reads the environment, applying defaults, then validates.
func Load() (Config, error) {
	var c Config

	c.Env = envString("APP_ENV", "dev")
	c.Log.Level = envString("LOG_LEVEL", "info")
	c.Log.Format = envString("LOG_FORMAT", "console")

	port := envString("PORT", "5175")
	c.HTTP.Addr = envString("HTTP_ADDR", ":"+port)
	c.HTTP.ReadHeaderTimeout = envDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	c.HTTP.HandlerTimeout = envDuration("HANDLER_TIMEOUT", 10*time.Second)
	c.HTTP.ShutdownTimeout = envDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	c.HTTP.ClientOrigin = envString("CLIENT_ORIGIN", "http://localhost:5173")

	c.DB.Path = envString("DB_PATH", "./data/app.db")

	c.Session.Backend = envString("SESSION_BACKEND", "memory")
	c.Session.TTL = envDuration("SESSION_TTL", 24*time.Hour)

	c.Redis.Addr = envString("REDIS_ADDR", "")
	c.Redis.DB = envInt("REDIS_DB", 0)

	c.Auth.Secret = envString("JWT_SECRET", DefaultJWTSecret)
	c.Auth.ExpiresIn = time.Duration(envInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour
	c.Auth.CookieName = envString("COOKIE_NAME", "palavreco_token")

	c.Game.AbsentLetterPolicy = envString("ABSENT_LETTER_POLICY", AbsentIgnore)

	c.Words.AnswersFile = envString("WORDS_ANSWERS_FILE", "")
	c.Words.AllowedFile = envString("WORDS_ALLOWED_FILE", "")

	c.Sentry.DSN = envString("SENTRY_DSN", "")
	c.Sentry.Environment = envString("SENTRY_ENVIRONMENT", c.Env)
	c.Sentry.Release = envString("SENTRY_RELEASE", "")
	c.Sentry.Debug = envBool("SENTRY_DEBUG", false)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	if c.Env != "dev" && c.Env != "prod" {
		return fmt.Errorf("unsupported APP_ENV=%q (want dev|prod)", c.Env)
	}
	if c.HTTP.Addr == "" {
		return errors.New("HTTP addr is empty")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT=%q (want console|json)", c.Log.Format)
	}
	if c.DB.Path == "" {
		return errors.New("DB_PATH is empty")
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("SESSION_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND=%q (want memory|redis)", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.Auth.Secret == "" {
		return errors.New("JWT_SECRET is empty")
	}
	if c.Env != "dev" && c.Auth.Secret == DefaultJWTSecret {
		return fmt.Errorf("refuse to run with default JWT_SECRET in %s", c.Env)
	}
	if c.Auth.ExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_DAYS must be positive")
	}
	switch c.Game.AbsentLetterPolicy {
	case AbsentAllow, AbsentIgnore, AbsentReject:
	default:
		return fmt.Errorf("unsupported ABSENT_LETTER_POLICY=%q (want allow|ignore|reject)", c.Game.AbsentLetterPolicy)
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
