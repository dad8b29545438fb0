package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/clientkeeper/internal/flagx"
	"github.com/dmitrijs2005/clientkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "168h" and integer nanoseconds are accepted.
// Only keys present in the file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP      *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC      *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	TokenRevocation       *bool           `json:"token_revocation"`
	PublicBaseURL         *string         `json:"public_base_url"`
	ImageFolder           *string         `json:"image_folder"`
	PhoneRegion           *string         `json:"phone_region"`
	LoginRatePerSecond    *int            `json:"login_rate_per_second"`
	LoginRateBurst        *int            `json:"login_rate_burst"`
	TrustedProxies        *string         `json:"trusted_proxies"`
	LogLevel              *string         `json:"log_level"`
	MailFrom              *string         `json:"mail_from"`
	S3RootUser            *string         `json:"s3_root_user"`
	S3RootPassword        *string         `json:"s3_root_password"`
	S3Bucket              *string         `json:"s3_bucket"`
	S3Region              *string         `json:"s3_region"`
	S3BaseEndpoint        *string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag. Without the flag nothing is loaded. An unreadable file or
// invalid JSON panics: the server must not start on a half-read config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.TokenRevocation != nil {
		config.TokenRevocation = *c.TokenRevocation
	}
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.ImageFolder, c.ImageFolder)
	setString(&config.PhoneRegion, c.PhoneRegion)
	if c.LoginRatePerSecond != nil {
		config.LoginRatePerSecond = *c.LoginRatePerSecond
	}
	if c.LoginRateBurst != nil {
		config.LoginRateBurst = *c.LoginRateBurst
	}
	setString(&config.TrustedProxies, c.TrustedProxies)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
