package email

import (
	"context"
	"errors"
	"time"

	"aquanova-auth/internal/config"
	"aquanova-auth/internal/domain"
)

// Sender define la interfaz para envio de codigos OTP por email.
type Sender interface {
	SendOTP(ctx context.Context, toEmail, displayName, code string, purpose domain.Purpose, expiresAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendOTP(_ context.Context, _, _, _ string, _ domain.Purpose, _ time.Time) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

// NewSenderFromConfig usa SMTP si hay host configurado; si no, un sender deshabilitado.
func NewSenderFromConfig(cfg config.SMTPConfig) (Sender, error) {
	if !cfg.Enabled() {
		return NewDisabledSender("email sender not configured"), nil
	}
	sender, err := NewSMTPSender(cfg.Host, cfg.Port, cfg.User, cfg.Pass, cfg.From, cfg.FromName, cfg.Brand, cfg.UseTLS)
	if err != nil {
		return nil, err
	}
	return sender, nil
}
