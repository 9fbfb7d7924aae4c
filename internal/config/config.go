package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	SinkLog     = "log"
	SinkWebhook = "webhook"
	SinkKafka   = "kafka"
)

type Config struct {
	Port    string `mapstructure:"PORT"`
	Env     string `mapstructure:"ENV"`
	AppName string `mapstructure:"APP_NAME"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	DBDSN         string `mapstructure:"DB_DSN"`
	MongoURI      string `mapstructure:"MONGODB_URI"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`

	Timezone        string        `mapstructure:"TIMEZONE"`
	RefreshInterval time.Duration `mapstructure:"REFRESH_INTERVAL"`

	NotifySink       string `mapstructure:"NOTIFY_SINK"`
	NotifyWebhookURL string `mapstructure:"NOTIFY_WEBHOOK_URL"`
	KafkaBrokers     string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic       string `mapstructure:"KAFKA_TOPIC"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
}

var keys = []string{
	"PORT", "ENV", "APP_NAME",
	"LOG_LEVEL", "LOG_FORMAT",
	"STORE_DRIVER", "DB_DSN", "MONGODB_URI", "MONGODB_DATABASE",
	"TIMEZONE", "REFRESH_INTERVAL",
	"NOTIFY_SINK", "NOTIFY_WEBHOOK_URL", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"JWT_SECRET", "JWT_ISSUER",
}

// Load lee la configuración desde env (y .env si existe).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_NAME", "carehive")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "carehive")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("REFRESH_INTERVAL", "60s")
	v.SetDefault("NOTIFY_SINK", SinkLog)
	v.SetDefault("KAFKA_TOPIC", "medicine-reminders")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env es opcional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.NotifySink = strings.ToLower(strings.TrimSpace(cfg.NotifySink))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resuelve TIMEZONE. El "día" de las dosis se calcula en esta zona.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// Brokers separa KAFKA_BROKERS (CSV).
func (c *Config) Brokers() []string {
	out := make([]string, 0)
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("DB_DSN is required when STORE_DRIVER=%s", StorePostgres)
		}
	case StoreMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=%s", StoreMongo)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q, %q or %q, got %q", StoreMemory, StorePostgres, StoreMongo, c.StoreDriver)
	}

	switch c.NotifySink {
	case SinkLog:
	case SinkWebhook:
		if strings.TrimSpace(c.NotifyWebhookURL) == "" {
			return fmt.Errorf("NOTIFY_WEBHOOK_URL is required when NOTIFY_SINK=%s", SinkWebhook)
		}
	case SinkKafka:
		if len(c.Brokers()) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when NOTIFY_SINK=%s", SinkKafka)
		}
	default:
		return fmt.Errorf("NOTIFY_SINK must be %q, %q or %q, got %q", SinkLog, SinkWebhook, SinkKafka, c.NotifySink)
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}
	if c.IsProduction() && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}
