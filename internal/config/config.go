package config

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Transport TransportConfig
	Kafka     KafkaConfig
	JWT       JWTConfig
	Broadcast BroadcastConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

var (
	ErrMissingAppKey    = errors.New("APP_KEY is required to sign channel admissions")
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required to verify bearer tokens")
)

var (
	ConfigInstance *Config
	once           sync.Once
)

type AppConfig struct {
	// Key signs private and presence channel admissions. Never log it.
	Key string
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string // extends the CORS allow list
}

type StoreConfig struct {
	// Driver is one of memory, redis, postgres, mysql, mongo.
	Driver string
}

type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type DatabaseConfig struct {
	URI string
}

type MongoConfig struct {
	URI        string
	DB         string
	Collection string
}

type TransportConfig struct {
	// Mode is local (deliver through this process's websocket edge) or http
	// (deliver through a remote edge's management API).
	Mode          string
	ManagementURL string
	HandlerURL    string
	// ManagementToken guards the management and invocation endpoints and
	// is presented by HTTPTransport and the forwarding dispatcher.
	ManagementToken string
	Timeout         time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type JWTConfig struct {
	Secret string
}

type BroadcastConfig struct {
	MaxConcurrency int
}

type RateLimitConfig struct {
	AuthRequests int
	AuthWindow   time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func LoadConfig() (*Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}

		viper.SetDefault("APP_KEY", "")
		viper.SetDefault("SERVER_HOST", "")
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
		viper.SetDefault("STORE_DRIVER", "memory")
		viper.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
		viper.SetDefault("REDIS_MAX_RETRIES", 3)
		viper.SetDefault("REDIS_POOL_SIZE", 100)
		viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
		viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
		viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
		viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
		viper.SetDefault("DATABASE_URL", "")
		viper.SetDefault("MONGO_URI", "mongodb://127.0.0.1:27017")
		viper.SetDefault("MONGO_DB", "echo_gateway")
		viper.SetDefault("MONGO_COLLECTION", "subscriptions")
		viper.SetDefault("TRANSPORT_MODE", "local")
		viper.SetDefault("MANAGEMENT_URL", "")
		viper.SetDefault("HANDLER_URL", "")
		viper.SetDefault("TRANSPORT_TIMEOUT", 10*time.Second)
		viper.SetDefault("KAFKA_BROKERS", "")
		viper.SetDefault("KAFKA_TOPIC", "echo-gateway.broadcasts")
		viper.SetDefault("KAFKA_GROUP_ID", "echo-gateway-workers")
		viper.SetDefault("JWT_SECRET", "")
		viper.SetDefault("MANAGEMENT_TOKEN", "")
		viper.SetDefault("BROADCAST_MAX_CONCURRENCY", 32)
		viper.SetDefault("AUTH_RATE_LIMIT", 60)
		viper.SetDefault("AUTH_RATE_WINDOW", time.Minute)
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_FORMAT", "text")
		viper.AutomaticEnv()

		ConfigInstance = &Config{
			App: AppConfig{
				Key: viper.GetString("APP_KEY"),
			},
			Server: ServerConfig{
				Host:           viper.GetString("SERVER_HOST"),
				Port:           viper.GetString("SERVER_PORT"),
				ReadTimeout:    viper.GetDuration("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetDuration("SERVER_WRITE_TIMEOUT"),
				IdleTimeout:    viper.GetDuration("SERVER_IDLE_TIMEOUT"),
				AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			},
			Store: StoreConfig{
				Driver: strings.ToLower(viper.GetString("STORE_DRIVER")),
			},
			Redis: RedisConfig{
				URI:          viper.GetString("REDIS_URL"),
				MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
				DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
				PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
				MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
			},
			Database: DatabaseConfig{
				URI: viper.GetString("DATABASE_URL"),
			},
			Mongo: MongoConfig{
				URI:        viper.GetString("MONGO_URI"),
				DB:         viper.GetString("MONGO_DB"),
				Collection: viper.GetString("MONGO_COLLECTION"),
			},
			Transport: TransportConfig{
				Mode:            strings.ToLower(viper.GetString("TRANSPORT_MODE")),
				ManagementURL:   viper.GetString("MANAGEMENT_URL"),
				HandlerURL:      viper.GetString("HANDLER_URL"),
				ManagementToken: viper.GetString("MANAGEMENT_TOKEN"),
				Timeout:         viper.GetDuration("TRANSPORT_TIMEOUT"),
			},
			Kafka: KafkaConfig{
				Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
				Topic:   viper.GetString("KAFKA_TOPIC"),
				GroupID: viper.GetString("KAFKA_GROUP_ID"),
			},
			JWT: JWTConfig{
				Secret: viper.GetString("JWT_SECRET"),
			},
			Broadcast: BroadcastConfig{
				MaxConcurrency: viper.GetInt("BROADCAST_MAX_CONCURRENCY"),
			},
			RateLimit: RateLimitConfig{
				AuthRequests: viper.GetInt("AUTH_RATE_LIMIT"),
				AuthWindow:   viper.GetDuration("AUTH_RATE_WINDOW"),
			},
			Log: LogConfig{
				Level:  viper.GetString("LOG_LEVEL"),
				Format: viper.GetString("LOG_FORMAT"),
			},
		}
	})

	if err := ConfigInstance.Validate(); err != nil {
		return nil, err
	}

	return ConfigInstance, nil
}

// Validate rejects configurations missing a secret.
func (c *Config) Validate() error {
	if c.App.Key == "" {
		return ErrMissingAppKey
	}
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
