package user

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const passwordHashCost = bcrypt.DefaultCost

func GeneratePasswordHash(pw string) (string, error) {
	if pw == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func PasswordMatches(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
