// Package notify delivers account emails: verification links and login
// codes. Delivery runs through a pluggable Mailer transport.
package notify

import "context"

// Message is a rendered outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Mailer hands a message to a delivery transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Sender identifies the From header of outbound mail.
type Sender struct {
	Address string
	Name    string
}

func (s Sender) header() string {
	if s.Name == "" {
		return s.Address
	}
	return s.Name + " <" + s.Address + ">"
}
