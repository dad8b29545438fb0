package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv(t *testing.T) {
	t.Setenv(EnvServerURL, "https://ck.example.com")

	c := &Config{ServerURL: "http://127.0.0.1:8080"}
	parseEnv(c)
	assert.Equal(t, "https://ck.example.com", c.ServerURL)

	t.Setenv(EnvServerURL, "")
	c = &Config{ServerURL: "keep"}
	parseEnv(c)
	assert.Equal(t, "keep", c.ServerURL, "empty variable must not override")
}
