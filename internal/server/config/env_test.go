package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv(t *testing.T) {
	t.Setenv(EnvSecretKey, "env-secret")
	t.Setenv(EnvDatabaseDSN, "postgres://env-dsn")
	t.Setenv(EnvS3RootPassword, "")

	c := &Config{SecretKey: "default", DatabaseDSN: "default", S3RootPassword: "keep"}
	parseEnv(c)

	assert.Equal(t, "env-secret", c.SecretKey)
	assert.Equal(t, "postgres://env-dsn", c.DatabaseDSN)
	assert.Equal(t, "keep", c.S3RootPassword, "empty variables must not override")
}
