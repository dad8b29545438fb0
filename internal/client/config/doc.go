// Package config loads runtime configuration for the clientkeeper terminal client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. CLIENTKEEPER_SERVER_URL from the environment (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// The merged Config is checked by (*Config).Validate, which also trims a
// trailing slash from ServerURL.
//
// Supported flags
//
//	-a string   base URL of the backend HTTP API
//	-i int      online status check interval (seconds)
//	-t int      request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s"
//	}
//
// Primary API
//
//   - type Config: ServerURL, OnlineCheckInterval, RequestTimeout
//   - func LoadConfig() (*Config, error): defaults, JSON, env, flags, then Validate
//   - func (*Config) LoadDefaults(): sets sensible defaults
package config
