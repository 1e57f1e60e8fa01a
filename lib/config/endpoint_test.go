package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCurrentEndpointConfigDefaultsRoundTrip verifies every default written
// by setDefaults is read back under the same key.
func TestCurrentEndpointConfigDefaultsRoundTrip(t *testing.T) {
	viper.Reset()
	setDefaults()

	cfg := CurrentEndpointConfig()
	assert.Equal(t, Defaults(), *cfg)
	assert.NoError(t, Validate(*cfg))
}

func TestCurrentEndpointConfigOverrides(t *testing.T) {
	viper.Reset()
	setDefaults()
	viper.Set("endpoint.min_forward_lifetime", "30s")
	viper.Set("endpoint.max_garlic_depth", 2)
	viper.Set("endpoint.ntp_servers", []string{"time.example.org"})

	cfg := CurrentEndpointConfig()
	assert.Equal(t, 30*time.Second, cfg.MinForwardLifetime)
	assert.Equal(t, 2, cfg.MaxGarlicDepth)
	assert.Equal(t, []string{"time.example.org"}, cfg.NTPServers)
	assert.Equal(t, 4096, cfg.GarlicTagCacheSize)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EndpointConfig)
	}{
		{"short forward lifetime", func(c *EndpointConfig) { c.MinForwardLifetime = 100 * time.Millisecond }},
		{"forward lifetime below floor", func(c *EndpointConfig) { c.MinForwardLifetime = 2 * time.Second }},
		{"zero garlic depth", func(c *EndpointConfig) { c.MaxGarlicDepth = 0 }},
		{"huge garlic depth", func(c *EndpointConfig) { c.MaxGarlicDepth = 100 }},
		{"zero tag cache", func(c *EndpointConfig) { c.GarlicTagCacheSize = 0 }},
		{"zero pool", func(c *EndpointConfig) { c.InboundPoolSize = 0 }},
		{"zero duplicate cache", func(c *EndpointConfig) { c.DuplicateCacheSize = 0 }},
		{"zero log rate", func(c *EndpointConfig) { c.LogRate = 0 }},
		{"zero log burst", func(c *EndpointConfig) { c.LogBurst = 0 }},
		{"no ntp servers", func(c *EndpointConfig) { c.NTPServers = nil }},
		{"zero ntp timeout", func(c *EndpointConfig) { c.NTPTimeout = 0 }},
		{"short ntp interval", func(c *EndpointConfig) { c.NTPInterval = time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "configuration validation failed")
		})
	}
}

func TestInitConfigWithFile(t *testing.T) {
	viper.Reset()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint:\n  max_garlic_depth: 3\n"), 0o600))

	CfgFile = path
	defer func() { CfgFile = "" }()

	require.NoError(t, InitConfig())
	cfg := CurrentEndpointConfig()
	assert.Equal(t, 3, cfg.MaxGarlicDepth)
	assert.Equal(t, 10*time.Second, cfg.MinForwardLifetime)
}

func TestInitConfigMissingFile(t *testing.T) {
	viper.Reset()
	CfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	defer func() { CfgFile = "" }()

	assert.Error(t, InitConfig())
}
