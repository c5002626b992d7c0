package notify

import (
	"context"
	"time"

	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/dmitrijs2005/talenthub/internal/server/metrics"
)

const (
	kindVerification = "verification"
	kindTwoFactor    = "two_factor"
)

// GatewayConfig holds the link bases and lifetimes shown in emails.
type GatewayConfig struct {
	Brand           string
	FrontendURL     string
	APIBaseURL      string
	VerificationTTL time.Duration
	TwoFactorTTL    time.Duration
}

// Gateway renders account emails and sends them through a Mailer. Send
// methods never fail the caller: delivery errors are logged and reported as
// false.
type Gateway struct {
	mailer  Mailer
	logger  logging.Logger
	metrics *metrics.Auth
	cfg     GatewayConfig
}

func NewGateway(mailer Mailer, logger logging.Logger, m *metrics.Auth, cfg GatewayConfig) *Gateway {
	if cfg.Brand == "" {
		cfg.Brand = "TalentHub"
	}
	return &Gateway{
		mailer:  mailer,
		logger:  logger.With("module", "notify"),
		metrics: m,
		cfg:     cfg,
	}
}

// SendVerificationEmail mails the account verification links for token.
func (g *Gateway) SendVerificationEmail(ctx context.Context, to, token string) bool {
	link, apiLink := verificationLinks(g.cfg.FrontendURL, g.cfg.APIBaseURL, token)
	msg := verificationTemplate.render(to, map[string]string{
		"brand":   g.cfg.Brand,
		"link":    link,
		"apiLink": apiLink,
		"hours":   wholeUnits(g.cfg.VerificationTTL, time.Hour),
	})
	return g.deliver(ctx, kindVerification, msg)
}

// Send2FACode mails a login code.
func (g *Gateway) Send2FACode(ctx context.Context, to, code string) bool {
	msg := twoFactorTemplate.render(to, map[string]string{
		"brand":   g.cfg.Brand,
		"code":    code,
		"minutes": wholeUnits(g.cfg.TwoFactorTTL, time.Minute),
	})
	return g.deliver(ctx, kindTwoFactor, msg)
}

func (g *Gateway) deliver(ctx context.Context, kind string, msg Message) bool {
	err := g.mailer.Send(ctx, msg)
	g.metrics.Notification(kind, err == nil)
	if err != nil {
		g.logger.Error(ctx, "email delivery failed", "kind", kind, "to", msg.To, "error", err)
		return false
	}
	g.logger.Info(ctx, "email sent", "kind", kind, "to", msg.To)
	return true
}
