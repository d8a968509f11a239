package config

import (
	"github.com/caarlos0/env/v11"
)

// Config holds process configuration. It is loaded once at startup and
// passed explicitly to the components that need it.
type Config struct {
	Port        string `env:"PORT" envDefault:"3000"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:sweetshop.db?cache=shared&mode=rwc"`

	SigningKey     string `env:"JWT_SECRET,required"`
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	SMTPHost string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	MailUser string `env:"MAIL_USER"`
	MailPass string `env:"MAIL_PASS"`

	// ApproverEmail receives admin registration OTPs. Codes are never sent
	// to the registrant, the operator behind this address vouches for them.
	ApproverEmail string `env:"ADMIN_APPROVER_EMAIL,required"`

	// ResetBaseURL is the client-side route reset links point at, the
	// ticket id is appended as the last path segment.
	ResetBaseURL string `env:"RESET_BASE_URL" envDefault:"http://localhost:5173/reset-password"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
