package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"aquanova-auth/internal/domain"
)

// PasswordHasher aplica un hash lento con sal y verifica contra el hash guardado.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// BcryptHasher implementa PasswordHasher con bcrypt.
type BcryptHasher struct {
	cost int
}

// DefaultBcryptCost es el costo usado cuando no se configura otro.
const DefaultBcryptCost = 10

// MaxPasswordBytes es el limite de entrada de bcrypt.
const MaxPasswordBytes = 72

// ValidatePassword rechaza passwords vacios o que bcrypt no puede procesar.
func ValidatePassword(password string) error {
	if password == "" {
		return domain.ValidationError("password is required")
	}
	if len(password) > MaxPasswordBytes {
		return domain.ValidationError(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ValidatePassword(password)
	}
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// Verify usa CompareHashAndPassword, que compara en tiempo constante.
func (h *BcryptHasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
