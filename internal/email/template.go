package email

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"time"

	"aquanova-auth/internal/domain"
)

var otpBodyTemplate = template.Must(template.New("otp").Parse(
	`<h1>Hello {{.Name}}!</h1>` +
		`<p>{{.Intro}}</p>` +
		`<p>Your OTP is: <strong>{{.Code}}</strong></p>` +
		`<p>Valid for {{.Minutes}} minutes.</p>`,
))

type otpBodyData struct {
	Name    string
	Intro   string
	Code    string
	Minutes int
}

// RenderOTP arma el asunto y el cuerpo HTML segun el proposito del codigo.
func RenderOTP(brand string, purpose domain.Purpose, displayName, code string, minutes int) (string, string, error) {
	var title, intro string
	switch purpose {
	case domain.PurposeSignupVerification:
		title = "Email Verification"
		intro = "Use this code to verify your email address."
	case domain.PurposePasswordReset:
		title = "Password Reset"
		intro = "Use this code to reset your password. If you did not request it, ignore this email."
	default:
		return "", "", fmt.Errorf("unknown otp purpose %q", purpose)
	}
	if displayName == "" {
		displayName = "there"
	}

	var body bytes.Buffer
	err := otpBodyTemplate.Execute(&body, otpBodyData{
		Name:    displayName,
		Intro:   intro,
		Code:    code,
		Minutes: minutes,
	})
	if err != nil {
		return "", "", err
	}

	subject := title
	if brand != "" {
		subject = brand + " - " + title
	}
	return subject, body.String(), nil
}

// minutesUntil redondea hacia arriba los minutos restantes hasta expiresAt.
func minutesUntil(now, expiresAt time.Time) int {
	m := int(math.Ceil(expiresAt.Sub(now).Minutes()))
	if m < 1 {
		return 1
	}
	return m
}
