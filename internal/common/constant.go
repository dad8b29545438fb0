// Package common contains shared constants and sentinel errors used across
// clientkeeper components.
package common

// AuthorizationHeaderName is the HTTP header (and gRPC metadata key, lowercased)
// carrying the session token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix must precede the encoded token in the authorization header.
const BearerPrefix = "Bearer "
