package service

import (
	"context"
	"log/slog"
)

// Mailer delivers account email.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

// LogMailer writes outgoing mail to the log instead of sending it.
// Used in development and until an SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// SendPasswordReset logs the reset link.
func (m *LogMailer) SendPasswordReset(_ context.Context, to, name, link string) error {
	m.logger.Info("password reset email", "to", to, "name", name, "link", link)
	return nil
}
