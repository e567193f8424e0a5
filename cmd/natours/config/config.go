package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DataSourceMemory   = "memory"
	DataSourcePostgres = "postgres"
	DataSourceMongo    = "mongo"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	passwordPlaceholder = "<PASSWORD>"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port             int
	Env              string
	LogLevel         string
	DataSource       string
	DataFile         string
	PostgresDSN      string
	Database         string
	DatabasePassword string
	DatabaseName     string
	StrictPaging     bool
}

// Load reads the env file at path (when it exists) into the process
// environment and returns the resulting configuration. Variables already
// set in the environment win over the file.
func Load(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", 3000)
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATA_SOURCE", DataSourceMemory)
	v.SetDefault("DATA_FILE", "dev-data/data/tours.json")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("DATABASE", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_PASSWORD", "")
	v.SetDefault("DATABASE_NAME", "natours")
	v.SetDefault("STRICT_PAGING", false)

	cfg := Config{
		Port:             v.GetInt("PORT"),
		Env:              strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:         v.GetString("LOG_LEVEL"),
		DataSource:       strings.ToLower(v.GetString("DATA_SOURCE")),
		DataFile:         v.GetString("DATA_FILE"),
		PostgresDSN:      v.GetString("POSTGRES_DSN"),
		Database:         v.GetString("DATABASE"),
		DatabasePassword: v.GetString("DATABASE_PASSWORD"),
		DatabaseName:     v.GetString("DATABASE_NAME"),
		StrictPaging:     v.GetBool("STRICT_PAGING"),
	}
	return cfg, cfg.Validate()
}

// Validate checks that the settings are usable together.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.DataSource {
	case DataSourceMemory:
	case DataSourcePostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres data source")
		}
	case DataSourceMongo:
		if c.Database == "" {
			return errors.New("DATABASE is required for the mongo data source")
		}
	default:
		return fmt.Errorf("unsupported data source %q", c.DataSource)
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// MongoURI returns the connection string with the password filled in.
func (c Config) MongoURI() string {
	return strings.Replace(c.Database, passwordPlaceholder, c.DatabasePassword, 1)
}
