package security

import (
	"github.com/matthewhartstonge/argon2"
)

// PasswordHasher hashes and verifies passwords using argon2id encoded hashes.
type PasswordHasher struct {
	config argon2.Config
}

// NewPasswordHasher creates a PasswordHasher with the given argon2 parameters.
func NewPasswordHasher(config argon2.Config) *PasswordHasher {
	return &PasswordHasher{config: config}
}

// NewDefaultPasswordHasher creates a PasswordHasher with the library's recommended parameters.
func NewDefaultPasswordHasher() *PasswordHasher {
	return NewPasswordHasher(argon2.DefaultConfig())
}

// Hash returns an encoded argon2id hash with a fresh random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// Verify reports whether password matches the encoded hash.
func (h *PasswordHasher) Verify(password, encodedHash string) (bool, error) {
	return argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
}
