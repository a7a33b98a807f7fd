package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Storage   StorageConfig
	SMTP      SMTPConfig
	Sweep     SweepConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	// QueueURL is the broker behind the fire-and-forget task queues.
	QueueURL string `mapstructure:"queue_url"`
	// LockEndpoints are the redundant lock coordinators; a majority must
	// be reachable for point awards to proceed.
	LockEndpoints []string      `mapstructure:"lock_endpoints"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
	LockRetries   int           `mapstructure:"lock_retries"`
}

type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	ExpiryHours        int    `mapstructure:"expiry_hours"`
	RefreshExpiryHours int    `mapstructure:"refresh_expiry_hours"`
}

type StorageConfig struct {
	TempDir   string `mapstructure:"temp_dir"`
	UploadDir string `mapstructure:"upload_dir"`
	ChunkSize int    `mapstructure:"chunk_size"`
	// MaxUploadSize caps multipart request bodies, in bytes.
	MaxUploadSize int64 `mapstructure:"max_upload_size"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type SweepConfig struct {
	// Schedule is a cron expression; the default fires daily at 09:00.
	Schedule string `mapstructure:"schedule"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("redis.lock_ttl", 10*time.Second)
	viper.SetDefault("redis.lock_retries", 1)
	viper.SetDefault("storage.chunk_size", 1<<20)
	viper.SetDefault("storage.max_upload_size", 512<<20)
	viper.SetDefault("sweep.schedule", "0 9 * * *")
	viper.SetDefault("ratelimit.rps", 100)
	viper.SetDefault("ratelimit.burst", 200)
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
