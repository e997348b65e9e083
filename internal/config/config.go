package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"homelink-backend/pkg/constants"
	"homelink-backend/pkg/env"
)

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	WebSocket WebSocketConfig
	Call      CallConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Environment string // development, production
	ServiceName string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// AuthConfig holds registration policy configuration
type AuthConfig struct {
	// InviteCode is seeded at startup; registration requires it
	InviteCode string
}

// WebSocketConfig holds gateway configuration
type WebSocketConfig struct {
	SendQueueSize  int
	MaxMessageSize int64
	MaxConnections int
}

// CallConfig holds call signaling configuration
type CallConfig struct {
	RingTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from the environment (.env file if present)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        env.GetInt("PORT", 8080),
			Environment: env.GetString("ENV", "development"),
			ServiceName: env.GetString("SERVICE_NAME", "homelink"),
		},
		Database: DatabaseConfig{
			Host:     env.GetString("DB_HOST", "localhost"),
			Port:     env.GetInt("DB_PORT", 5432),
			User:     env.GetString("DB_USER", "postgres"),
			Password: env.GetString("DB_PASSWORD", ""),
			Database: env.GetString("DB_NAME", "homelink"),
			SSLMode:  env.GetString("DB_SSL_MODE", "disable"),
			MaxConns: env.GetInt("DB_MAX_CONNS", 25),
			MinConns: env.GetInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     env.GetString("REDIS_HOST", "localhost"),
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetString("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
			PoolSize: env.GetInt("REDIS_POOL_SIZE", 10),
		},
		JWT: JWTConfig{
			Secret:             env.GetString("JWT_SECRET", ""),
			AccessTokenExpiry:  env.GetDuration("JWT_ACCESS_EXPIRY", constants.AccessTokenExpiry),
			RefreshTokenExpiry: env.GetDuration("JWT_REFRESH_EXPIRY", constants.RefreshTokenExpiry),
		},
		Auth: AuthConfig{
			InviteCode: env.GetString("INVITATION_CODE", "secret_invite"),
		},
		WebSocket: WebSocketConfig{
			SendQueueSize:  env.GetInt("WS_SEND_QUEUE_SIZE", constants.WebSocketSendQueueSize),
			MaxMessageSize: int64(env.GetInt("WS_MAX_MESSAGE_SIZE", constants.WebSocketMaxMessageSize)),
			MaxConnections: env.GetInt("WS_MAX_CONNECTIONS", 1000),
		},
		Call: CallConfig{
			RingTimeout: env.GetDuration("CALL_RING_TIMEOUT", constants.DefaultRingTimeout),
		},
		Log: LogConfig{
			Level:  env.GetString("LOG_LEVEL", "info"),
			Format: env.GetString("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks critical configuration values
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.WebSocket.SendQueueSize <= 0 {
		return fmt.Errorf("WS_SEND_QUEUE_SIZE must be positive")
	}
	if c.Call.RingTimeout <= 0 {
		return fmt.Errorf("CALL_RING_TIMEOUT must be positive")
	}
	return nil
}
