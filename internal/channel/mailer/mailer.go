// Package mailer delivers newsletter mail over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wneessen/go-mail"

	"content_pipeline/internal/domain"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Sender struct {
	client   *mail.Client
	from     string
	logger   *slog.Logger
	warnOnce sync.Once
}

// New builds an SMTP sender. An incomplete configuration is not fatal here:
// the sender is still constructed and every Send reports
// domain.ErrConfigurationMissing, so a misconfigured channel degrades into
// per-recipient delivery failures.
func New(cfg Config, logger *slog.Logger) (*Sender, error) {
	s := &Sender{
		from:   cfg.From,
		logger: logger.With("channel", "newsletter"),
	}

	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" || cfg.From == "" {
		return s, nil
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	s.client = client
	return s, nil
}

// Send delivers one message to one recipient.
func (s *Sender) Send(ctx context.Context, subject, htmlBody, recipient string) error {
	if s.client == nil {
		s.warnOnce.Do(func() {
			s.logger.Warn("mailer not configured, newsletter delivery will fail")
		})
		return fmt.Errorf("mailer: %w", domain.ErrConfigurationMissing)
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.logger.Debug("sent mail", "recipient", recipient)
	return nil
}
