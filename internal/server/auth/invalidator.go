package auth

import "time"

// ShortLivedValidity is the lifetime of the replacement token minted by
// Invalidate.
const ShortLivedValidity = time.Second

// Invalidate forces a token to expire almost immediately. It decodes raw
// without checking expiry, then re-signs the same subject with exp = now+1s.
// ok is false when raw cannot be decoded.
//
// Without a revocation list this is best effort: the original string keeps a
// valid signature until its own exp, and a client that cached it can still use it.
func (m *Manager) Invalidate(raw string) (replacement string, ok bool) {
	claims, err := m.Decode(raw)
	if err != nil {
		return "", false
	}

	now := m.now().UTC()
	replacement, err = m.sign(claims.SubjectID, claims.SubjectEmail, claims.Purpose, now, now.Add(ShortLivedValidity))
	if err != nil {
		return "", false
	}

	if m.revoked != nil && claims.TokenID != "" {
		m.revoked.Revoke(claims.TokenID, claims.ExpiresAt)
	}

	return replacement, true
}
