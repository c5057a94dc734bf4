package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"APP_ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	JWTSecret           string        `mapstructure:"APP_JWT_SECRET"`
	Timezone            string        `mapstructure:"APP_TIMEZONE"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	RateLimitPerSecond  int           `mapstructure:"RATE_LIMIT_PER_SECOND"`
	AMQPURL             string        `mapstructure:"AMQP_URL"`
	AMQPExchange        string        `mapstructure:"AMQP_EXCHANGE"`
	FirebaseCredsBase64 string        `mapstructure:"FIREBASE_CREDENTIALS_BASE64"`
	FirebaseCredsFile   string        `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	AutoCancelInterval  time.Duration `mapstructure:"AUTO_CANCEL_INTERVAL"`
	SeedDemoData        bool          `mapstructure:"SEED_DEMO_DATA"`
	ShutdownGracePeriod time.Duration `mapstructure:"SHUTDOWN_GRACE_PERIOD"`
}

var keys = []string{
	"PORT", "APP_ENV", "DATABASE_URL", "APP_JWT_SECRET", "APP_TIMEZONE",
	"REDIS_URL", "RATE_LIMIT_PER_SECOND", "AMQP_URL", "AMQP_EXCHANGE",
	"FIREBASE_CREDENTIALS_BASE64", "FIREBASE_CREDENTIALS_FILE",
	"AUTO_CANCEL_INTERVAL", "SEED_DEMO_DATA", "SHUTDOWN_GRACE_PERIOD",
}

// Load reads configuration from the environment. Call godotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("RATE_LIMIT_PER_SECOND", 20)
	v.SetDefault("AMQP_EXCHANGE", "fretus.events")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "./firebase-service-account.json")
	v.SetDefault("AUTO_CANCEL_INTERVAL", "1m")
	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("SHUTDOWN_GRACE_PERIOD", "10s")

	v.AutomaticEnv()
	// AutomaticEnv only answers Get; Unmarshal needs every key bound explicitly.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if c.JWTSecret == "" {
		return errors.New("APP_JWT_SECRET environment variable is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the timezone used to compute service days.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsLocal() bool {
	return c.Env == "local"
}
