package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Store drivers
const (
	DriverMongoDB  = "mongodb"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	MongoDB  MongoDBConfig
	Postgres PostgresConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Raffle   RaffleConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// StoreConfig selects the record store
type StoreConfig struct {
	Driver      string
	MaxAttempts int
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	DSN string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// AuthConfig holds the facilitator credentials
type AuthConfig struct {
	FacilitatorPasswordHash string
}

// RaffleConfig holds raffle rules and provisioning data
type RaffleConfig struct {
	LowestPrize int64
	SeedFile    string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFrom(".", "./config")
}

// LoadFrom loads configuration searching for config.yaml in the given paths.
// Environment variables override the file, e.g. STORE_DRIVER or MONGODB_URI.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("mongodb.uri is required for the mongodb store")
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Raffle.LowestPrize <= 0 {
		return fmt.Errorf("raffle.lowestprize must be positive, got %d", c.Raffle.LowestPrize)
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("Store.Driver", DriverMemory)
	v.SetDefault("Store.MaxAttempts", 25)
	v.SetDefault("MongoDB.URI", "")
	v.SetDefault("MongoDB.Database", "team-raffle")
	v.SetDefault("Postgres.DSN", "")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 12*60*60) // 12 hours
	v.SetDefault("Auth.FacilitatorPasswordHash", "")
	v.SetDefault("Raffle.LowestPrize", 5000)
	v.SetDefault("Raffle.SeedFile", "seed.yaml")
	v.SetDefault("LogLevel", "info")
}
