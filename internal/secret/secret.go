// Package secret encrypts sensitive columns at rest using fernet tokens.
package secret

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrDecrypt is returned when a token cannot be verified with any configured key.
var ErrDecrypt = errors.New("failed to decrypt value")

// Box encrypts with the first key and decrypts with any of them, so keys can
// be rotated by prepending a new one.
type Box struct {
	keys []*fernet.Key
}

// New builds a Box from one or more base64-encoded fernet keys.
func New(encodedKeys ...string) (*Box, error) {
	if len(encodedKeys) == 0 {
		return nil, fmt.Errorf("at least one key is required")
	}
	keys := make([]*fernet.Key, 0, len(encodedKeys))
	for _, s := range encodedKeys {
		k, err := fernet.DecodeKey(s)
		if err != nil {
			return nil, fmt.Errorf("invalid fernet key: %w", err)
		}
		keys = append(keys, k)
	}
	return &Box{keys: keys}, nil
}

// GenerateKey returns a new random key in its encoded form.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return k.Encode(), nil
}

// Encrypt returns the fernet token for plain.
func (b *Box) Encrypt(plain string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plain), b.keys[0])
	if err != nil {
		return "", fmt.Errorf("failed to encrypt value: %w", err)
	}
	return string(tok), nil
}

// Decrypt verifies token and returns the plaintext. A negative TTL skips the
// timestamp check; stored account numbers never expire.
func (b *Box) Decrypt(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), -1, b.keys)
	if msg == nil {
		return "", ErrDecrypt
	}
	return string(msg), nil
}
