package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Settings is the typed application configuration. Connection strings for
// Postgres, Mongo and Redis are read by the Init* functions directly.
type Settings struct {
	Port     string `yaml:"port"      env:"PORT"      env-default:"8080"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	GinMode  string `yaml:"gin_mode"  env:"GIN_MODE"  env-default:"release"`

	Supabase SupabaseSettings `yaml:"supabase"`
	TTS      TTSSettings      `yaml:"tts"`
	Records  RecordSettings   `yaml:"records"`
	GCS      GCSSettings      `yaml:"gcs"`
	Client   ClientSettings   `yaml:"client"`

	CacheKeyPrefix string `yaml:"cache_key_prefix" env:"CACHE_KEY_PREFIX" env-default:"texttalk:"`
}

type SupabaseSettings struct {
	URL        string        `yaml:"url"         env:"SUPABASE_URL"         env-required:"true"`
	AnonKey    string        `yaml:"anon_key"    env:"SUPABASE_ANON_KEY"    env-required:"true"`
	JWTSecret  string        `yaml:"jwt_secret"  env:"SUPABASE_JWT_SECRET"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SUPABASE_SESSION_TTL" env-default:"720h"`
}

type TTSSettings struct {
	BackendURL string `yaml:"backend_url" env:"TTS_BACKEND_URL" env-required:"true"`
}

type RecordSettings struct {
	Backend     string `yaml:"backend"      env:"RECORD_STORE"     env-default:"postgres"` // postgres|mongo
	MongoDB     string `yaml:"mongo_db"     env:"MONGO_DB"         env-default:"texttalk"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"RECORD_AUTO_MIGRATE" env-default:"false"`
}

type GCSSettings struct {
	Bucket          string        `yaml:"bucket"           env:"GCS_AUDIO_BUCKET"`
	CredentialsFile string        `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	SignTTL         time.Duration `yaml:"sign_ttl"         env:"GCS_SIGN_TTL" env-default:"15m"`
}

type ClientSettings struct {
	CookieName   string        `yaml:"cookie_name"   env:"CLIENT_COOKIE_NAME"   env-default:"tt_client"`
	CookieSecure bool          `yaml:"cookie_secure" env:"CLIENT_COOKIE_SECURE" env-default:"true"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  env:"CLIENT_IDLE_TIMEOUT"  env-default:"30m"`
	SweepEvery   time.Duration `yaml:"sweep_every"   env:"CLIENT_SWEEP_EVERY"   env-default:"1m"`
}

// Load reads CONFIG_PATH (YAML) when set, otherwise the environment only.
func Load() (*Settings, error) {
	var s Settings

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &s); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&s); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	switch s.Records.Backend {
	case "postgres", "mongo":
	default:
		return nil, fmt.Errorf("config: RECORD_STORE must be postgres or mongo, got %q", s.Records.Backend)
	}
	return &s, nil
}
