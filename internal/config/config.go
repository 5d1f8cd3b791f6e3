// Package config содержит логику чтения конфигурации сервиса шелтерлинк.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса шелтерлинк.
type Config struct {
	RunAddress       string   `env:"RUN_ADDRESS"`
	DatabaseURI      string   `env:"DATABASE_URI"`
	StoreAddress     string   `env:"STORE_ADDRESS"`
	GeoSystemAddress string   `env:"GEO_SYSTEM_ADDRESS"`
	SessionSecret    string   `env:"SESSION_SECRET" envDefault:"shelterlink-secret"`
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envDefault:"*"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envStoreAddress := cfg.StoreAddress
	envGeoAddress := cfg.GeoSystemAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.StoreAddress, "s", "", "hosted document store address")
	flag.StringVar(&cfg.GeoSystemAddress, "g", "", "geo routing system address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envStoreAddress != "" {
		cfg.StoreAddress = envStoreAddress
	}
	if envGeoAddress != "" {
		cfg.GeoSystemAddress = envGeoAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
