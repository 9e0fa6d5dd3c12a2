package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// Empty disables the API key check.
	APIKey string `envconfig:"API_KEY"`
	// Directory for the daily NDJSON event journal; empty disables it.
	JournalDir string `envconfig:"EVENT_JOURNAL_DIR"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskboard/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskboard/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
	// Redis settings (used when Type == "redis")
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	// Reload the task store when the local storage file changes on disk.
	Watch bool `envconfig:"WATCH_STORAGE" default:"false"`
}

type NavigationEnv struct {
	File string `envconfig:"NAVIGATION_FILE"`
}

type AIEnv struct {
	Enabled bool          `envconfig:"AI_ENABLED" default:"false"`
	WorkDir string        `envconfig:"AI_WORK_DIR" default:"."`
	Timeout time.Duration `envconfig:"AI_TIMEOUT" default:"2m"`
}

type Env struct {
	BaseEnv
	StorageEnv
	NavigationEnv
	AIEnv
}

const namespace = "TASKBOARD"

const (
	StorageTypeLocal  = "local"
	StorageTypeS3     = "s3"
	StorageTypeRedis  = "redis"
	StorageTypeMemory = "memory"
)

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.StorageEnv.validate(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *StorageEnv) validate() error {
	switch e.Type {
	case StorageTypeLocal, StorageTypeRedis, StorageTypeMemory:
	case StorageTypeS3:
		if e.S3Bucket == "" {
			return fmt.Errorf("%s_S3_BUCKET is required for s3 storage", namespace)
		}
	default:
		return fmt.Errorf("unknown storage type %q", e.Type)
	}
	if e.Watch && e.Type != StorageTypeLocal {
		return fmt.Errorf("%s_WATCH_STORAGE requires local storage", namespace)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
