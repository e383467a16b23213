package mailer

import (
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender delivers a single email.
type Sender interface {
	Send(email Email) error
}

// Mailer represents an SMTP email sender.
type Mailer struct {
	config Config
	dialer *gomail.Dialer
}

// Email represents an email message.
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// Config holds SMTP configuration for sending emails.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewMailer creates a new Mailer instance with the given configuration.
func NewMailer(cfg Config) (*Mailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dialer := gomail.NewDialer(
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
	)

	return &Mailer{
		config: cfg,
		dialer: dialer,
	}, nil
}

// Send sends a single email.
func (m *Mailer) Send(email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, email)

	return m.dialer.DialAndSend(msg)
}

func (m *Mailer) setEmailMessage(msg *gomail.Message, email Email) {
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			msg.AddAlternative("text/plain", email.Body)
		}
	} else {
		msg.SetBody("text/plain", email.Body)
	}
}

// validate checks if the Mailer configuration is valid.
func (c Config) validate() error {
	if c.Host == "" {
		return errors.New("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return errors.New("missing SMTP_PORT environment variable")
	}
	if c.From == "" {
		return errors.New("missing SMTP_FROM environment variable")
	}

	return nil
}

// LogSender is used when no SMTP server is configured. It only records
// that a message would have been sent.
type LogSender struct {
	Log func(email Email)
}

func (s LogSender) Send(email Email) error {
	if s.Log != nil {
		s.Log(email)
	}
	return nil
}
