package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/flagx"
)

var knownFlags = []string{
	"-a", "-grpc", "-d", "-s", "-t", "-revocation", "-base-url", "-log-level",
	"-trusted-proxies",
	"-u", "-p", "-b", "-region", "-e",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g., ":8080")
//	-grpc string       gRPC ops bind address (e.g., ":50051")
//	-d string          PostgreSQL DSN
//	-s string          token HMAC secret key
//	-t int             token validity, hours
//	-revocation bool   keep invalidated token ids until they expire
//	-base-url string   public base URL for confirmation links
//	-log-level string  debug, info, warn or error
//	-trusted-proxies string  CIDRs allowed to set X-Forwarded-For
//	-u string          S3 root user
//	-p string          S3 root password
//	-b string          S3 bucket name
//	-region string     S3 region
//	-e string          S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Only the flags above are taken from os.Args (see flagx.FilterArgs), so the
// -c/-config flag consumed by parseJson does not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "address and port to serve gRPC ops endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Hours()), "token_validity_duration (in hours)")

	fs.BoolVar(&config.TokenRevocation, "revocation", config.TokenRevocation, "remember invalidated tokens until expiry")
	fs.StringVar(&config.PublicBaseURL, "base-url", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.TrustedProxies, "trusted-proxies", config.TrustedProxies, "comma-separated trusted proxy CIDRs")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Hour
}
