package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		ShutdownTimeout    int      `mapstructure:"shutdown_timeout_seconds"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		TTL      int    `mapstructure:"ttl_seconds"`
	} `mapstructure:"redis"`

	Trust struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
		ServiceSecret  string   `mapstructure:"service_secret"`
		Issuer         string   `mapstructure:"issuer"`
		TokenTTLHours  int      `mapstructure:"token_ttl_hours"`
	} `mapstructure:"trust"`

	// Secrets points at an S3 compatible bucket holding the service secret
	// for deployments that do not inject it through the environment.
	Secrets struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		Key       string `mapstructure:"key"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"secrets"`

	Log struct {
		Mode string `mapstructure:"mode"`
	} `mapstructure:"log"`

	History struct {
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"history"`

	// FileUsed is the config file that was read, empty when running on defaults.
	FileUsed string `mapstructure:"-"`
}

var ErrMissingServiceSecret = errors.New("trust.service_secret not set and no secrets bucket configured")

// Load reads configs/config.yaml (optional), .env (optional) and the
// environment, in increasing priority.
func Load() (*Config, error) {
	return LoadFile("configs/config.yaml")
}

func LoadFile(path string) (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}
	if err := v.ReadInConfig(); err == nil {
		cfg.FileUsed = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.Trust.ServiceSecret == "" && cfg.Secrets.Bucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		secret, err := fetchServiceSecret(ctx, cfg)
		if err != nil {
			return nil, err
		}
		cfg.Trust.ServiceSecret = secret
	}
	if cfg.Trust.ServiceSecret == "" {
		return nil, ErrMissingServiceSecret
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "treelof")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl_seconds", 60)
	v.SetDefault("trust.issuer", "treelof-api")
	v.SetDefault("trust.token_ttl_hours", 24*30)
	v.SetDefault("secrets.region", "auto")
	v.SetDefault("secrets.key", "config/service_secret.txt")
	v.SetDefault("log.mode", "development")
	v.SetDefault("history.timezone", "UTC")
}

// applyEnvOverrides maps the short env names used by the deploy scripts.
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("DB_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			c.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		c.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		c.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		c.Database.Name = name
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		c.Redis.Password = pass
	}

	if secret := os.Getenv("TRUST_SERVICE_SECRET"); secret != "" {
		c.Trust.ServiceSecret = secret
	}
	if origins := os.Getenv("TRUST_ALLOWED_ORIGINS"); origins != "" {
		c.Trust.AllowedOrigins = splitList(origins)
	}
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTL) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
