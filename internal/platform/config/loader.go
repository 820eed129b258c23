package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names for secrets that never belong in the yaml file.
const (
	EnvConfigPath = "VISIONLEX_CONFIG"
	EnvAPIKey     = "VISIONLEX_API_KEY"
	EnvTTSToken   = "VISIONLEX_TTS_TOKEN"
	EnvTTSAppID   = "VISIONLEX_TTS_APP_ID"
	EnvTTSCluster = "VISIONLEX_TTS_CLUSTER"
	EnvTTSVoice   = "VISIONLEX_TTS_VOICE"
)

// Loader reads the yaml config and layers env-provided credentials on top.
type Loader struct {
	useDotEnv bool
	path      string
}

func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load resolves the config file, falling back to built-in defaults when no
// file exists. Credentials from the environment always win over the file.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// No .env file is normal in production; system env still applies.
		_ = godotenv.Load()
	}

	path := l.path
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		path = ""
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyDefaults()
	applyEnv(cfg)

	return &Result{Config: cfg, Path: path}, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Vision.APIKey = v
	}
	if v := os.Getenv(EnvTTSToken); v != "" {
		cfg.TTS.Token = v
	}
	if v := os.Getenv(EnvTTSAppID); v != "" {
		cfg.TTS.AppID = v
	}
	if v := os.Getenv(EnvTTSCluster); v != "" {
		cfg.TTS.Cluster = v
	}
	if v := os.Getenv(EnvTTSVoice); v != "" {
		cfg.TTS.Voice = v
	}
}
