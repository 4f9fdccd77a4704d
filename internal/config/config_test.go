package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Driver: DatabaseDriverPostgres, Host: "localhost", Name: "db", User: "u", TxMaxAttempts: 3},
		Redis:    RedisConfig{Enabled: true, Host: "localhost"},
		JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		Cart:     CartConfig{VariantPolicy: VariantPolicyStrict},
		Events:   EventsConfig{Broker: EventBrokerNone},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "short jwt secret", mutate: func(c *Config) { c.JWT.Secret = "short" }, wantErr: "JWT_SECRET"},
		{name: "missing db host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: "DB_HOST"},
		{name: "memory driver needs no host", mutate: func(c *Config) { c.Database.Driver = DatabaseDriverMemory; c.Database.Host = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }, wantErr: "DB_DRIVER"},
		{name: "no tx attempts", mutate: func(c *Config) { c.Database.TxMaxAttempts = 0 }, wantErr: "DB_TX_MAX_ATTEMPTS"},
		{name: "missing redis host", mutate: func(c *Config) { c.Redis.Host = "" }, wantErr: "REDIS_HOST"},
		{name: "redis disabled needs no host", mutate: func(c *Config) { c.Redis.Enabled = false; c.Redis.Host = "" }},
		{name: "unknown variant policy", mutate: func(c *Config) { c.Cart.VariantPolicy = "guess" }, wantErr: "CART_VARIANT_POLICY"},
		{name: "implicit single policy", mutate: func(c *Config) { c.Cart.VariantPolicy = VariantPolicyImplicitSingle }},
		{name: "unknown broker", mutate: func(c *Config) { c.Events.Broker = "nats" }, wantErr: "EVENTS_BROKER"},
		{name: "kafka broker", mutate: func(c *Config) { c.Events.Broker = EventBrokerKafka }},
		{name: "negative threshold", mutate: func(c *Config) { c.Inventory.DefaultLowStockThreshold = -1 }, wantErr: "THRESHOLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_SLICE", "cash, cod ,,mpesa")
	t.Setenv("TEST_INT", "not-a-number")
	t.Setenv("TEST_DURATION", "90s")

	assert.Equal(t, []string{"cash", "cod", "mpesa"}, getEnvAsSlice("TEST_SLICE", nil))
	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))
	assert.Equal(t, 90*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
	assert.Equal(t, "fallback", getEnv("TEST_MISSING_KEY", "fallback"))
}
