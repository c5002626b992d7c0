package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_PlainUsesSendMail(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotBody string
		gotAuth smtp.Auth
	)
	orig := sendMail
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotBody = addr, a, from, to, string(msg)
		return nil
	}
	t.Cleanup(func() { sendMail = orig })

	m := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user",
		Password: "pass",
		From:     Sender{Address: "no-reply@talenthub.example", Name: "TalentHub"},
	})
	err := m.Send(context.Background(), Message{To: "ann@example.com", Subject: "Hello", Text: "plain", HTML: "<b>html</b>"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "no-reply@talenthub.example", gotFrom)
	assert.Equal(t, []string{"ann@example.com"}, gotTo)
	assert.Contains(t, gotBody, "From: TalentHub <no-reply@talenthub.example>\r\n")
	assert.Contains(t, gotBody, "Subject: Hello\r\n")
	assert.Contains(t, gotBody, "multipart/alternative")
	assert.Contains(t, gotBody, "plain")
	assert.Contains(t, gotBody, "<b>html</b>")
}

func TestSMTPMailer_NoAuthWithoutUsername(t *testing.T) {
	orig := sendMail
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Nil(t, a)
		return errors.New("relay refused")
	}
	t.Cleanup(func() { sendMail = orig })

	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, From: Sender{Address: "a@b.c"}})
	err := m.Send(context.Background(), Message{To: "x@y.z", Text: "t"})
	require.EqualError(t, err, "relay refused")
}

func TestSMTPMailer_SecureDialError(t *testing.T) {
	orig := dialTLS
	dialTLS = func(addr string, cfg *tls.Config) (net.Conn, error) {
		assert.Equal(t, "smtp.example.com", cfg.ServerName)
		return nil, errors.New("handshake failed")
	}
	t.Cleanup(func() { dialTLS = orig })

	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 465, Secure: true, From: Sender{Address: "a@b.c"}})
	err := m.Send(context.Background(), Message{To: "x@y.z"})
	require.EqualError(t, err, "handshake failed")
}

func TestSMTPMailer_Misconfigured(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{})
	require.Error(t, m.Send(context.Background(), Message{To: "x@y.z"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m = NewSMTPMailer(SMTPConfig{Host: "h"})
	require.ErrorIs(t, m.Send(ctx, Message{To: "x@y.z"}), context.Canceled)
}

func TestBuildMIME_TextOnly(t *testing.T) {
	body := string(buildMIME(Sender{Address: "a@b.c"}, Message{To: "x@y.z", Subject: "s", Text: "only text"}))
	assert.Contains(t, body, "From: a@b.c\r\n")
	assert.Contains(t, body, "Content-Type: text/plain")
	assert.False(t, strings.Contains(body, "multipart"))
	assert.True(t, strings.HasSuffix(body, "only text"))
}
