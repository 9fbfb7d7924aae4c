package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// viper ignora variables vacías, así que caen a los defaults.
	for _, k := range keys {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, SinkLog, cfg.NotifySink)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/carehive")
	t.Setenv("REFRESH_INTERVAL", "30s")
	t.Setenv("NOTIFY_SINK", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Env:             "development",
			StoreDriver:     StoreMemory,
			NotifySink:      SinkLog,
			RefreshInterval: time.Minute,
			Timezone:        "UTC",
		}
	}

	cases := map[string]func(c *Config){
		"postgres without dsn":   func(c *Config) { c.StoreDriver = StorePostgres },
		"unknown driver":         func(c *Config) { c.StoreDriver = "sqlite" },
		"webhook without url":    func(c *Config) { c.NotifySink = SinkWebhook },
		"kafka without brokers":  func(c *Config) { c.NotifySink = SinkKafka },
		"zero interval":          func(c *Config) { c.RefreshInterval = 0 },
		"bad timezone":           func(c *Config) { c.Timezone = "Mars/Olympus" },
		"production without jwt": func(c *Config) { c.Env = "production" },
	}

	require.NoError(t, base().Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfig_Location(t *testing.T) {
	c := &Config{Timezone: "Asia/Colombo"}
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Colombo", loc.String())

	c.Timezone = ""
	loc, err = c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}
