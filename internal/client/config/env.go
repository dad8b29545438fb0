package config

import "os"

// EnvServerURL overrides the backend base URL, e.g. inside containers where
// passing flags is awkward.
const EnvServerURL = "CLIENTKEEPER_SERVER_URL"

func parseEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvServerURL); ok && v != "" {
		cfg.ServerURL = v
	}
}
