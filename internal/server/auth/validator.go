package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Validate checks an Authorization header value. Failures are classified in
// order: common.ErrMissingToken, common.ErrMalformedHeader,
// common.ErrInvalidToken, common.ErrTokenExpired. Only session tokens pass; a
// confirmation token is common.ErrInvalidToken here.
func (m *Manager) Validate(rawHeader string) (*ValidatedClaims, error) {
	if strings.TrimSpace(rawHeader) == "" {
		return nil, common.ErrMissingToken
	}
	if !strings.HasPrefix(rawHeader, common.BearerPrefix) {
		return nil, common.ErrMalformedHeader
	}
	claims, err := m.ValidateToken(strings.TrimSpace(rawHeader[len(common.BearerPrefix):]))
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, fmt.Errorf("%w: %s token is not a session", common.ErrInvalidToken, claims.Purpose)
	}
	return claims, nil
}

// ValidateToken checks a bare token without the header prefix. Unlike
// Validate it accepts tokens of any purpose.
func (m *Manager) ValidateToken(raw string) (*ValidatedClaims, error) {
	claims, err := m.Decode(raw)
	if err != nil {
		return nil, err
	}

	// Signature already verified, so an old token is reported as expired
	// rather than invalid.
	if claims.ExpiresAt.Before(m.now().UTC()) {
		return nil, common.ErrTokenExpired
	}
	if m.revoked != nil && claims.TokenID != "" && m.revoked.IsRevoked(claims.TokenID) {
		return nil, common.ErrTokenExpired
	}

	return claims, nil
}

// Decode verifies the signature and structure of raw but ignores expiry.
// Any failure is reported as common.ErrInvalidToken.
func (m *Manager) Decode(raw string) (*ValidatedClaims, error) {
	if raw == "" {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}
	keyFunc := func(*jwt.Token) (any, error) { return m.secretKey, nil }
	_, err := jwt.ParseWithClaims(raw, claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing required claims", common.ErrInvalidToken)
	}
	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad %s claim", common.ErrInvalidToken, UserIDClaim)
	}

	v := &ValidatedClaims{
		SubjectID:    id,
		SubjectEmail: claims.Subject,
		TokenID:      claims.ID,
		Purpose:      claims.Purpose,
		ExpiresAt:    claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		v.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return v, nil
}

// Classify maps a validation error to its failure class and a short label
// for metrics. Anything unrecognised is an invalid token.
func Classify(err error) (class error, label string) {
	switch {
	case errors.Is(err, common.ErrMissingToken):
		return common.ErrMissingToken, "missing"
	case errors.Is(err, common.ErrMalformedHeader):
		return common.ErrMalformedHeader, "malformed"
	case errors.Is(err, common.ErrTokenExpired):
		return common.ErrTokenExpired, "expired"
	default:
		return common.ErrInvalidToken, "invalid"
	}
}
