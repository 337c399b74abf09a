package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads path, overlays APP_* environment variables (optionally seeded
// from a .env file next to the process) and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	setDefaults(v)

	var config Config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.addr", ":8080")
	v.SetDefault("app.read_timeout", 10)
	v.SetDefault("app.write_timeout", 30)
	v.SetDefault("app.shutdown_timeout", 15)
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.max_conn_lifetime", 3600)
	v.SetDefault("postgres.max_conn_idle_time", 300)
	v.SetDefault("postgres.health_check_period", 30)
	v.SetDefault("dynamodb.table", "revisions")
	v.SetDefault("dynamodb.region", "us-east-1")
	// Bound so AutomaticEnv can see them without a matching key in the file.
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db", "")
	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("tokens.secret", "")
}

// Validate checks field constraints and the settings each store driver needs.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	switch c.Store.Driver {
	case DriverPostgres:
		var missing []string
		if c.Postgres.User == "" {
			missing = append(missing, "postgres.user")
		}
		if c.Postgres.Password == "" {
			missing = append(missing, "postgres.password")
		}
		if c.Postgres.DBName == "" {
			missing = append(missing, "postgres.db")
		}
		if len(missing) > 0 {
			return fmt.Errorf("config validation error: missing %s", strings.Join(missing, ", "))
		}
	case DriverDynamoDB:
		if c.DynamoDB.Table == "" {
			return errors.New("config validation error: missing dynamodb.table")
		}
	}
	return nil
}
