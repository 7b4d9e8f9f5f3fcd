// Package config loads Lucy's configuration from a YAML file overlaid
// with environment variables, using viper the way WeKnora's deployment
// config does: a typed Config tree, one nested struct per subsystem,
// bound to both a config key and an env var.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration tree. Every subsystem that needs
// settings gets its own nested struct rather than a flat bag of keys.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Postgres       PostgresConfig       `mapstructure:"postgres"`
	Redis          RedisConfig          `mapstructure:"redis"`
	VectorDatabase *VectorDatabaseConfig `mapstructure:"vector_database"`
	Minio          MinioConfig          `mapstructure:"minio"`
	Settings       SettingsConfig       `mapstructure:"settings"`
	CostMeter      CostMeterConfig      `mapstructure:"cost_meter"`
	Log            LogConfig            `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a libpq-style connection string for gorm's postgres driver.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// VectorDatabaseConfig describes the C4 vector store backend. Driver
// is surfaced verbatim in /system/info (WeKnora exposed the same
// field for its pluggable retrieval drivers); Lucy only ever sets it
// to "qdrant" but the field stays generic so the value is still
// meaningful if a second backend is ever added.
type VectorDatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

// SettingsConfig seeds C1's settings table on first boot; after the
// first run the database row wins over these values.
type SettingsConfig struct {
	SeedFromEnv bool `mapstructure:"seed_from_env"`
}

type CostMeterConfig struct {
	RingBufferSize  int           `mapstructure:"ring_buffer_size"`
	FlushInterval   time.Duration `mapstructure:"flush_interval"`
	DailyBudgetUSD  float64       `mapstructure:"daily_budget_usd"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configPath (if non-empty) and overlays LUCY_-prefixed
// environment variables, returning a populated Config with defaults
// for anything unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LUCY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.dbname", "lucy")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("vector_database.driver", "qdrant")
	v.SetDefault("vector_database.host", "localhost")
	v.SetDefault("vector_database.port", 6334)
	v.SetDefault("vector_database.collection", "lucy_chunks")

	v.SetDefault("minio.bucket", "lucy-media")

	v.SetDefault("settings.seed_from_env", true)

	v.SetDefault("cost_meter.ring_buffer_size", 10000)
	v.SetDefault("cost_meter.flush_interval", 5*time.Second)

	v.SetDefault("log.level", "info")
}
