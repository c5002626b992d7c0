package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBrevoEndpoint is the Brevo transactional email API.
const DefaultBrevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent,omitempty"`
	TextContent string         `json:"textContent,omitempty"`
}

// BrevoMailer sends mail through the Brevo HTTP API.
type BrevoMailer struct {
	client   *http.Client
	endpoint string
	apiKey   string
	from     Sender
}

func NewBrevoMailer(client *http.Client, endpoint, apiKey string, from Sender) *BrevoMailer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if endpoint == "" {
		endpoint = DefaultBrevoEndpoint
	}
	return &BrevoMailer{client: client, endpoint: endpoint, apiKey: apiKey, from: from}
}

func (m *BrevoMailer) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(brevoRequest{
		Sender:      brevoAddress{Name: m.from.Name, Email: m.from.Address},
		To:          []brevoAddress{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo responded %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
