package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"aquanova-auth/internal/domain"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OTPGenerator produce codigos OTP de seis digitos.
type OTPGenerator interface {
	Generate() (string, error)
}

type cryptoOTPGenerator struct{}

// NewOTPGenerator devuelve un generador respaldado por crypto/rand.
func NewOTPGenerator() OTPGenerator {
	return cryptoOTPGenerator{}
}

// Generate elige uniformemente en [100000, 999999].
func (cryptoOTPGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

func isValidOTPCode(code string) bool {
	if len(code) != domain.OTPCodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
