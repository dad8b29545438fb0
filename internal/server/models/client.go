// Package models defines server-side data models persisted in the database.
package models

import "time"

// Client is an account holder. Email is the login identity and is unique among
// non-deleted clients.
type Client struct {
	ID    int64
	Email string

	// PasswordHash is the keyed hash of the secret, Salt the per-client salt
	// used to compute it. Neither ever leaves the server.
	PasswordHash []byte
	Salt         []byte

	FirstName string
	LastName  string
	// Document is the national taxpayer id (CPF), digits only.
	Document string
	// Phone is stored in E.164 form.
	Phone     string
	BirthDate *time.Time
	// Avatar is the object-storage key of the profile image, empty when unset.
	Avatar string

	IsConfirmed bool

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

// ClientPatch is a partial update. Nil fields are left unchanged.
type ClientPatch struct {
	Email        *string
	PasswordHash []byte
	FirstName    *string
	LastName     *string
	Document     *string
	Phone        *string
	BirthDate    *time.Time
	Avatar       *string
}

// Apply returns a copy of c with the patch applied.
func (p ClientPatch) Apply(c Client) Client {
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.PasswordHash != nil {
		c.PasswordHash = p.PasswordHash
	}
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.Document != nil {
		c.Document = *p.Document
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.BirthDate != nil {
		bd := *p.BirthDate
		c.BirthDate = &bd
	}
	if p.Avatar != nil {
		c.Avatar = *p.Avatar
	}
	return c
}

// SecretChanged reports whether the patch replaces the credential.
func (p ClientPatch) SecretChanged() bool {
	return p.PasswordHash != nil
}
