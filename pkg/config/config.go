package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/namoruso/inventory/pkg/utils"
)

var ErrMissingSecret = errors.New("jwt secret is not configured")

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP     `yaml:"http"`
	Postgres PG       `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Auth     Auth     `yaml:"auth"`
	Log      Log      `yaml:"log"`
	Tracing  Tracing  `yaml:"tracing"`
	Limiter  Limiter  `yaml:"limiter"`
	CORS     CORS     `yaml:"cors"`
	Breaker  Breaker  `yaml:"breaker"`
	Services Services `yaml:"services"`
}

type HTTP struct {
	Port         string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout      time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"4s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"10s"`
	BodyLimit    int           `yaml:"body_limit" env-default:"1048576"`
}

type PG struct {
	URL             string        `yaml:"url" env:"DATABASE_URL" env-required:"true"`
	MaxConns        int32         `yaml:"max_conns" env-default:"5"`
	MinConns        int32         `yaml:"min_conns" env-default:"1"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"5m"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env-default:"5s"`
	MigrateOnStart  bool          `yaml:"migrate_on_start" env:"DB_MIGRATE" env-default:"true"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"10m"`
	Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"true"`
}

type Kafka struct {
	Brokers       []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	EventsTopic   string   `yaml:"events_topic" env-default:"inventory_events"`
	CommandsTopic string   `yaml:"commands_topic" env-default:"inventory_commands"`
	GroupID       string   `yaml:"group_id" env-default:"inventory-service-group"`
	Enabled       bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"true"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET_KEY" env-required:"true"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Tracing struct {
	Enabled  bool   `yaml:"enabled" env:"TRACING_ENABLED" env-default:"false"`
	Endpoint string `yaml:"endpoint" env:"JAEGER_ENDPOINT" env-default:"localhost:4318"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"20"`
	Expiration time.Duration `yaml:"expiration" env-default:"5s"`
}

type CORS struct {
	AllowOrigins string `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS" env-default:"http://localhost:5002,http://localhost:5173,http://localhost:8001"`
}

type Breaker struct {
	MaxRequests  uint32        `yaml:"max_requests" env-default:"3"`
	Interval     time.Duration `yaml:"interval" env-default:"5s"`
	Timeout      time.Duration `yaml:"timeout" env-default:"10s"`
	MinRequests  uint32        `yaml:"min_requests" env-default:"5"`
	FailureRatio float64       `yaml:"failure_ratio" env-default:"0.6"`
}

type Services struct {
	Name string `yaml:"name" env:"SERVICE_NAME" env-default:"inventory-service"`
}

// Load reads CONFIG_PATH when the file exists and the environment otherwise.
// Env vars always override file values.
func Load() (*Config, error) {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	var cfg Config

	_, err := os.Stat(configPath)
	switch {
	case err == nil:
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("error reading env config: %w", err)
		}
	default:
		return nil, fmt.Errorf("error checking config file: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, ErrMissingSecret
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	return cfg
}

func (c *Config) LoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level: c.Log.Level,
		Env:   c.Env,
	}
}
