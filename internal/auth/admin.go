package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin is the single operator allowed to change the catalog.
type Admin struct {
	Username     string
	PasswordHash []byte
}

func (a Admin) Verify(username, password string) error {
	username = strings.TrimSpace(username)
	if len(a.PasswordHash) == 0 || username == "" {
		return ErrInvalidCredentials
	}

	// Compare the hash even on a wrong username to keep timing flat.
	hashErr := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password))
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	if hashErr != nil || !userOK {
		return ErrInvalidCredentials
	}
	return nil
}

func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
