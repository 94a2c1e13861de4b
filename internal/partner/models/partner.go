package models

import (
	"strings"
	"time"

	id "ingestgate/pkg/domain"
)

// Partner is the tenant that owns submitted events. Managed outside this
// service; read-only here.
type Partner struct {
	ID        id.PartnerID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Credential binds an API key to a partner. Only the bcrypt hash of the
// secret half is stored.
type Credential struct {
	ID         id.CredentialID
	PartnerID  id.PartnerID
	KeyID      string
	SecretHash string
	RevokedAt  *time.Time
	CreatedAt  time.Time

	// PartnerActive is populated by lookups that join the owning partner.
	PartnerActive bool
}

// Usable reports whether the credential may authenticate at now.
func (c *Credential) Usable(now time.Time) bool {
	if !c.PartnerActive {
		return false
	}
	return c.RevokedAt == nil || c.RevokedAt.After(now)
}

// Identity is what the gate attaches to an authenticated request.
type Identity struct {
	PartnerID    id.PartnerID
	CredentialID id.CredentialID
}

const (
	keySeparator = "."
	maxKeyIDLen  = 64
	maxSecretLen = 72 // bcrypt input limit
)

// ParseAPIKey splits "<keyID>.<secret>". ok is false for anything that
// cannot be a key this service issued.
func ParseAPIKey(raw string) (keyID, secret string, ok bool) {
	keyID, secret, found := strings.Cut(raw, keySeparator)
	if !found || keyID == "" || secret == "" {
		return "", "", false
	}
	if len(keyID) > maxKeyIDLen || len(secret) > maxSecretLen {
		return "", "", false
	}
	return keyID, secret, true
}

// FormatAPIKey joins a key id and secret into the presented form.
func FormatAPIKey(keyID, secret string) string {
	return keyID + keySeparator + secret
}
