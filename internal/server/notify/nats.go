package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used by NATSMailer.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// queuedMessage is the JSON payload consumed by the mail worker.
type queuedMessage struct {
	Message
	From     string    `json:"from"`
	QueuedAt time.Time `json:"queuedAt"`
}

// NATSMailer hands messages to a mail worker over a NATS subject instead of
// talking to a mail server directly.
type NATSMailer struct {
	pub     Publisher
	subject string
	from    Sender
}

func NewNATSMailer(pub Publisher, subject string, from Sender) *NATSMailer {
	return &NATSMailer{pub: pub, subject: subject, from: from}
}

func (m *NATSMailer) Send(ctx context.Context, msg Message) error {
	if m.pub == nil {
		return errors.New("nats publisher is not configured")
	}
	data, err := json.Marshal(queuedMessage{Message: msg, From: m.from.header(), QueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := m.pub.Publish(m.subject, data); err != nil {
		return err
	}
	return m.pub.FlushWithContext(ctx)
}

// ConnectNATS dials the NATS server used for the mail queue.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
