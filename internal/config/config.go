package config

import (
	"github.com/maxviazov/revision-history-service/internal/logger"
)

// Store drivers accepted by StoreConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

type Config struct {
	App        AppConfig           `mapstructure:"app"`
	Logger     logger.LoggerConfig `mapstructure:"logger"`
	Store      StoreConfig         `mapstructure:"store"`
	Postgres   PostgresConfig      `mapstructure:"postgres"`
	DynamoDB   DynamoDBConfig      `mapstructure:"dynamodb"`
	Limits     LimitsConfig        `mapstructure:"limits"`
	Privileges PrivilegesConfig    `mapstructure:"privileges"`
	Tokens     TokensConfig        `mapstructure:"tokens"`
}

type AppConfig struct {
	Addr            string `mapstructure:"addr" validate:"required"`
	ReadTimeout     int    `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    int    `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"gte=0"`
	GinMode         string `mapstructure:"gin_mode" validate:"omitempty,oneof=debug release test"`
}

type StoreConfig struct {
	Driver  string `mapstructure:"driver" validate:"oneof=memory postgres dynamodb"`
	Migrate bool   `mapstructure:"migrate"`
}

// PostgresConfig holds pool settings; durations are in seconds.
type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	DBName            string `mapstructure:"db"`
	SSLMode           string `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns          int32  `mapstructure:"max_conns" validate:"gte=0"`
	MinConns          int32  `mapstructure:"min_conns" validate:"gte=0"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime" validate:"gte=0"`
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time" validate:"gte=0"`
	HealthCheckPeriod int    `mapstructure:"health_check_period" validate:"gte=0"`
}

type DynamoDBConfig struct {
	Table     string `mapstructure:"table"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LimitsConfig mirrors enumerate.Limits; zero keeps the built-in default.
type LimitsConfig struct {
	Default       int `mapstructure:"default" validate:"gte=0"`
	UserMax       int `mapstructure:"user_max" validate:"gte=0"`
	HighMax       int `mapstructure:"high_max" validate:"gte=0"`
	MaxResultSize int `mapstructure:"max_result_size" validate:"gte=0"`
}

type PrivilegesConfig struct {
	Groups map[string][]string `mapstructure:"groups"`
}

type TokensConfig struct {
	Secret string `mapstructure:"secret"`
}
