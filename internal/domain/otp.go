package domain

import "time"

// OTPCodeLength es la cantidad de digitos de un codigo OTP.
const OTPCodeLength = 6

// Purpose identifica el flujo que origina una solicitud de OTP.
type Purpose string

const (
	PurposeSignupVerification Purpose = "signup_verification"
	PurposePasswordReset      Purpose = "password_reset"
)

func (p Purpose) Valid() bool {
	return p == PurposeSignupVerification || p == PurposePasswordReset
}

// OTPRecord es un codigo de verificacion de un solo uso asociado a un email.
type OTPRecord struct {
	ID        string
	Email     string
	Code      string
	ExpiresAt time.Time
	Verified  bool
	CreatedAt time.Time
}

// ExpiredAt informa si el registro ya no es valido en el instante now.
// now == ExpiresAt cuenta como expirado.
func (r OTPRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
