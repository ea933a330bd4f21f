package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`
	HttpPort string `yaml:"httpPort"`
	DBPath   string `yaml:"dbPath"`
	LogLevel string `yaml:"logLevel"`
}

// Load reads configuration from environment variables with defaults.
// If CONFIG_FILE points at a YAML file, its values are applied first and
// environment variables override them.
func Load() *Config {
	cfg := &Config{
		Env:      "dev",
		HttpPort: "8080",
		DBPath:   "data/stratus.db",
		LogLevel: "info",
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, cfg)
		}
	}
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.HttpPort = getEnv("HTTP_PORT", cfg.HttpPort)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
