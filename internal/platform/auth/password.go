package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword             = errors.New("password must not be empty")
	ErrMismatchedHashAndPassword = errors.New("password does not match stored hash")
)

// bcryptCost is the work factor for new password hashes. Raising it only
// affects hashes created afterwards; verification reads the cost from the
// hash itself.
const bcryptCost = 12

// HashPassword generates a bcrypt hash for the given cleartext password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(h), err
}

// ComparePasswordAndHash validates the given cleartext password against a
// stored bcrypt hash. The comparison is constant-time.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
