package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/core"
	"github.com/Chative-querybot/server/internal/storage"
	logx "github.com/Chative-querybot/server/pkg/logger"
	pkgredis "github.com/Chative-querybot/server/pkg/redis"
)

// AppConfig defines all configurable parameters, sourced from environment variables
// (loaded from the env file for local runs).
type AppConfig struct {
	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Infrastructure
	Redis    pkgredis.Config `ignored:"true"`
	Database storage.Config `ignored:"true"`

	// Agent configs
	Oracle    model.OracleModelConfig    `ignored:"true"`
	Formatter model.FormatterModelConfig `ignored:"true"`
	Session   model.SessionConfig        `ignored:"true"`
}

// loadConfig reads the env file, if any, and the process environment. Each section is
// processed on its own so the explicit variable names are not prefixed.
func loadConfig(path string) (*AppConfig, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg AppConfig
	sections := []struct {
		prefix string
		spec   any
	}{
		{"", &cfg},
		{"redis", &cfg.Redis},
		{"", &cfg.Database},
		{"", &cfg.Oracle},
		{"", &cfg.Formatter},
		{"", &cfg.Session},
	}
	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.spec); err != nil {
			return nil, fmt.Errorf("process environment config: %w", err)
		}
	}
	return &cfg, nil
}

func (c *AppConfig) Environment() core.Environment {
	return core.ParseEnvironment(c.AppEnv)
}

func (c *AppConfig) initLogger() {
	logx.Init(logx.LoggerOpts{Environment: c.Environment(), Level: c.LogLevel})
}
