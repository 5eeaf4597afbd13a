package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// HashPassword derives a salted bcrypt record from the plaintext. bcrypt is
// deliberately slow to resist offline brute force; the salt and cost are
// encoded inside the returned record.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifyPassword reports whether the plaintext matches the stored record.
// Malformed records verify as false rather than erroring, so a corrupted row
// behaves like a wrong password.
func VerifyPassword(password, hashRecord string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashRecord), []byte(password)) == nil
}
