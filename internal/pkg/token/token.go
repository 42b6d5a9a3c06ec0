package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewActivationToken generates a cryptographically random 64-character hex
// token. Tokens are opaque; two calls never collide in practice, so the
// email and web channels get independent values.
func NewActivationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate activation token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
