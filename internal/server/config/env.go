package config

import "os"

// Environment variables read by parseEnv. Secrets are expected to come from
// here rather than from flags, which leak into process listings.
const (
	EnvSecretKey      = "CLIENTKEEPER_SECRET_KEY"
	EnvDatabaseDSN    = "CLIENTKEEPER_DATABASE_DSN"
	EnvS3RootPassword = "CLIENTKEEPER_S3_ROOT_PASSWORD"
)

func parseEnv(config *Config) {
	if v, ok := os.LookupEnv(EnvSecretKey); ok && v != "" {
		config.SecretKey = v
	}
	if v, ok := os.LookupEnv(EnvDatabaseDSN); ok && v != "" {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv(EnvS3RootPassword); ok && v != "" {
		config.S3RootPassword = v
	}
}
