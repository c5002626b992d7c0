package notify

import (
	"context"

	"github.com/dmitrijs2005/talenthub/internal/logging"
)

// LogMailer writes messages to the log instead of sending them. It is the
// development transport; the body is only emitted at debug level.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("transport", "log")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info(ctx, "email delivery disabled, message logged", "to", msg.To, "subject", msg.Subject)
	m.logger.Debug(ctx, "email body", "to", msg.To, "text", msg.Text)
	return nil
}
