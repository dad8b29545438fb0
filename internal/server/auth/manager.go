package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Manager owns the signing key and mints, verifies and early-expires tokens.
// It is safe for concurrent use: the key is read-only after construction.
type Manager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
	revoked   RevocationList
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRevocationList makes Invalidate remember the original token id and
// Validate reject it until it would have expired anyway.
func WithRevocationList(r RevocationList) Option {
	return func(m *Manager) { m.revoked = r }
}

// NewManager returns a Manager signing with secretKey and issuing tokens valid
// for ttl.
func NewManager(secretKey []byte, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		secretKey: secretKey,
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue builds and signs a token for the given client.
func (m *Manager) Issue(subjectID int64, subjectEmail string) (string, error) {
	if subjectEmail == "" {
		return "", errors.New("subject email is required")
	}
	now := m.now().UTC()
	return m.sign(subjectID, subjectEmail, "", now, now.Add(m.ttl))
}

// IssueConfirmation signs the token for an account confirmation link. It has
// the session lifetime but Validate refuses it.
func (m *Manager) IssueConfirmation(subjectID int64, subjectEmail string) (string, error) {
	if subjectEmail == "" {
		return "", errors.New("subject email is required")
	}
	now := m.now().UTC()
	return m.sign(subjectID, subjectEmail, PurposeConfirmation, now, now.Add(m.ttl))
}

func (m *Manager) sign(subjectID int64, subjectEmail, purpose string, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectEmail,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        ulid.Make().String(),
		},
		UserID:  strconv.FormatInt(subjectID, 10),
		Purpose: purpose,
	})

	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
