// Package auth issues, validates and invalidates the signed session tokens
// carried in the Authorization header.
//
// Tokens are stateless HS256 JWTs. The subject claim holds the client's email
// and the custom UserId claim the client's id as a decimal string.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDClaim is the name of the custom claim holding the client id.
const UserIDClaim = "UserId"

// PurposeConfirmation marks the token mailed in an account confirmation
// link. Such tokens are accepted by ValidateToken but never as a session in
// the Authorization header.
const PurposeConfirmation = "confirm-account"

// Claims are the registered claims plus the client id and, for
// special-purpose tokens, their purpose. Session tokens carry no purpose.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"UserId"`
	Purpose string `json:"purpose,omitempty"`
}

// ValidatedClaims is what callers get back from a verified token.
type ValidatedClaims struct {
	SubjectID    int64
	SubjectEmail string
	TokenID      string
	Purpose      string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}
