package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	OTPStorePostgres = "postgres"
	OTPStoreRedis    = "redis"
	OTPStoreMemory   = "memory"
)

// Config centraliza la configuración del servicio.
// Se carga una sola vez al iniciar el proceso y no se modifica después.
type Config struct {
	HTTPPort      string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string        `env:"DATABASE_URL,required,notEmpty"`
	RunMigrations bool          `env:"RUN_MIGRATIONS" envDefault:"false"`
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"aquanova-auth"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	OTPTTL        time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPStore      string        `env:"OTP_STORE" envDefault:"postgres"`
	OTPRetention  time.Duration `env:"OTP_RETENTION" envDefault:"24h"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
	SMTP          SMTPConfig
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
}

// SMTPConfig agrupa la configuracion del envio de emails.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Pass     string `env:"SMTP_PASS"`
	From     string `env:"SMTP_FROM"`
	FromName string `env:"SMTP_FROM_NAME"`
	UseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	Brand    string `env:"EMAIL_BRAND" envDefault:"AquaNova"`
}

// Enabled indica si hay un servidor SMTP configurado.
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

// LoadSMTPConfig carga solo la seccion SMTP; la usan herramientas que no tocan la base.
func LoadSMTPConfig() (SMTPConfig, error) {
	var cfg SMTPConfig
	if err := env.Parse(&cfg); err != nil {
		return SMTPConfig{}, err
	}
	return cfg, nil
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.OTPStore {
	case OTPStorePostgres, OTPStoreMemory:
	case OTPStoreRedis:
		if c.RedisAddr == "" {
			return errors.New("OTP_STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown OTP_STORE %q", c.OTPStore)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.OTPTTL <= 0 {
		return errors.New("OTP_TTL must be positive")
	}
	if c.OTPRetention < 0 {
		return errors.New("OTP_RETENTION must not be negative")
	}
	return nil
}

// SMTPEnabled indica si hay un servidor SMTP configurado.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Enabled()
}
