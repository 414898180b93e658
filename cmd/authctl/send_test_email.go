package main

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"aquanova-auth/internal/config"
	"aquanova-auth/internal/domain"
	"aquanova-auth/internal/email"
	"aquanova-auth/internal/service"
)

type sendTestEmailConfig struct {
	to      string
	name    string
	purpose string
}

// newSender se reemplaza en tests.
var newSender = func() (email.Sender, error) {
	smtpCfg, err := config.LoadSMTPConfig()
	if err != nil {
		return nil, err
	}
	if !smtpCfg.Enabled() {
		return nil, oops.Code("SMTP_NOT_CONFIGURED").Errorf("SMTP_HOST is not set")
	}
	return email.NewSenderFromConfig(smtpCfg)
}

// NewSendTestEmailCmd crea el subcomando que envia un OTP de prueba.
func NewSendTestEmailCmd() *cobra.Command {
	cfg := &sendTestEmailConfig{}

	cmd := &cobra.Command{
		Use:   "send-test-email",
		Short: "Send a generated OTP through the configured SMTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSendTestEmail(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.to, "to", "", "recipient address")
	cmd.Flags().StringVar(&cfg.name, "name", "Test User", "display name used in the greeting")
	cmd.Flags().StringVar(&cfg.purpose, "purpose", string(domain.PurposeSignupVerification), "signup_verification or password_reset")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runSendTestEmail(cmd *cobra.Command, cfg *sendTestEmailConfig) error {
	to := strings.TrimSpace(cfg.to)
	if to == "" {
		return oops.Code("INVALID_ARGUMENT").Errorf("--to is required")
	}
	purpose := domain.Purpose(cfg.purpose)
	if !purpose.Valid() {
		return oops.Code("INVALID_ARGUMENT").Errorf("unknown purpose %q", cfg.purpose)
	}

	sender, err := newSender()
	if err != nil {
		return err
	}
	code, err := service.NewOTPGenerator().Generate()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := sender.SendOTP(ctx, to, cfg.name, code, purpose, time.Now().Add(service.DefaultOTPTTL)); err != nil {
		return oops.Code("SEND_FAILED").With("to", to).Wrap(err)
	}
	cmd.Printf("Test email sent to %s (code %s)\n", to, code)
	return nil
}
