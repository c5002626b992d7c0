package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrevoMailer_Send(t *testing.T) {
	var got brevoRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "xkeysib-test", r.Header.Get("api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<1@brevo>"}`))
	}))
	defer srv.Close()

	m := NewBrevoMailer(srv.Client(), srv.URL, "xkeysib-test", Sender{Address: "no-reply@talenthub.example", Name: "TalentHub"})
	err := m.Send(context.Background(), Message{To: "ann@example.com", Subject: "s", HTML: "<p>h</p>", Text: "t"})
	require.NoError(t, err)

	assert.Equal(t, "TalentHub", got.Sender.Name)
	assert.Equal(t, "no-reply@talenthub.example", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "ann@example.com", got.To[0].Email)
	assert.Equal(t, "<p>h</p>", got.HTMLContent)
	assert.Equal(t, "t", got.TextContent)
}

func TestBrevoMailer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized","message":"Key not found"}`))
	}))
	defer srv.Close()

	m := NewBrevoMailer(nil, srv.URL, "bad", Sender{Address: "a@b.c"})
	err := m.Send(context.Background(), Message{To: "ann@example.com"})
	require.ErrorContains(t, err, "brevo responded 401")
	require.ErrorContains(t, err, "Key not found")
}

func TestBrevoMailer_DefaultEndpoint(t *testing.T) {
	m := NewBrevoMailer(nil, "", "k", Sender{})
	assert.Equal(t, DefaultBrevoEndpoint, m.endpoint)
}
