package invite

import (
	"crypto/rand"
	"encoding/hex"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// MinCredentialBytes is the floor for any issued credential (128 bits)
	MinCredentialBytes = 16
	// DefaultCredentialBytes yields a 64 char hex invitation credential
	DefaultCredentialBytes = 32
	// AdminCredentialBytes sizes admin registration tokens (40 hex chars)
	AdminCredentialBytes = 20
)

// RandomCredentialIssuer reads credentials from crypto/rand
type RandomCredentialIssuer struct{}

// NewCredentialIssuer returns the crypto/rand backed issuer
func NewCredentialIssuer() CredentialIssuer {
	return RandomCredentialIssuer{}
}

// Issue returns byteLength random bytes hex encoded. Lengths under
// MinCredentialBytes are raised to the floor.
func (RandomCredentialIssuer) Issue(byteLength int) (string, error) {
	if byteLength < MinCredentialBytes {
		byteLength = MinCredentialBytes
	}
	return randomHex(byteLength)
}

// CredentialIssuerFunc adapts a function to CredentialIssuer
type CredentialIssuerFunc func(byteLength int) (string, error)

// Issue implements CredentialIssuer
func (f CredentialIssuerFunc) Issue(byteLength int) (string, error) {
	return f(byteLength)
}

// AdminTokenIssuer issues admin panel registration tokens. They live in
// the admin identity store and are never accepted as invitation credentials.
type AdminTokenIssuer interface {
	IssueRegistrationToken() (string, error)
}

// RandomAdminTokenIssuer reads registration tokens from crypto/rand
type RandomAdminTokenIssuer struct{}

// NewAdminTokenIssuer returns the crypto/rand backed admin token issuer
func NewAdminTokenIssuer() AdminTokenIssuer {
	return RandomAdminTokenIssuer{}
}

// IssueRegistrationToken returns AdminCredentialBytes random bytes hex encoded
func (RandomAdminTokenIssuer) IssueRegistrationToken() (string, error) {
	return randomHex(AdminCredentialBytes)
}

// AdminTokenIssuerFunc adapts a function to AdminTokenIssuer
type AdminTokenIssuerFunc func() (string, error)

// IssueRegistrationToken implements AdminTokenIssuer
func (f AdminTokenIssuerFunc) IssueRegistrationToken() (string, error) {
	return f()
}

func randomHex(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random bytes")
	}
	return hex.EncodeToString(buf), nil
}
