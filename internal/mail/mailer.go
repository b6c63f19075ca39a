package mail

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Mailer is the out-of-band email collaborator. Callers treat failures as
// non-fatal: they log and move on.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer records outgoing mail in the application log. It stands in for
// a real delivery backend in environments without one configured.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	log.WithFields(log.Fields{"to": to, "subject": subject}).Info("mail queued")
	return nil
}
