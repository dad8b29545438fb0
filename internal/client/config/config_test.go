package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{ServerURL: "https://ck.example.com/", OnlineCheckInterval: time.Second, RequestTimeout: time.Second}
	}

	c := valid()
	require.NoError(t, c.Validate())
	assert.Equal(t, "https://ck.example.com", c.ServerURL, "trailing slash trimmed")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ftp scheme", func(c *Config) { c.ServerURL = "ftp://ck.example.com" }},
		{"no scheme", func(c *Config) { c.ServerURL = "ck.example.com:8080" }},
		{"no host", func(c *Config) { c.ServerURL = "http://" }},
		{"unparsable", func(c *Config) { c.ServerURL = "http://[::1" }},
		{"zero interval", func(c *Config) { c.OnlineCheckInterval = 0 }},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	t.Run("env then flags", func(t *testing.T) {
		t.Setenv(EnvServerURL, "http://env:8080/")
		os.Args = []string{"client", "-t", "4"}

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "http://env:8080", cfg.ServerURL)
		assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv(EnvServerURL, "http://env:8080")
		os.Args = []string{"client", "-a", "https://flag:443"}

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "https://flag:443", cfg.ServerURL)
	})

	t.Run("invalid result", func(t *testing.T) {
		t.Setenv(EnvServerURL, "")
		os.Args = []string{"client", "-i", "0"}

		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
