package services

import "github.com/dmitrijs2005/talenthub/internal/server/models"

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is an authenticated user together with freshly minted tokens.
type Session struct {
	User models.PublicUser `json:"user"`
	TokenPair
}

// LoginResult is either LoginAuthenticated or LoginTwoFactorRequired.
type LoginResult interface {
	loginResult()
}

// LoginAuthenticated carries tokens for users without two-factor sign-in.
type LoginAuthenticated struct {
	Session
}

// LoginTwoFactorRequired means a code was mailed to Email and must be passed
// to Verify2FA. No tokens are issued yet.
type LoginTwoFactorRequired struct {
	User  models.PublicUser
	Email string
}

func (LoginAuthenticated) loginResult()     {}
func (LoginTwoFactorRequired) loginResult() {}

type RegisterResult struct {
	UserID string
}

// ClientInfo describes the caller a refresh token is issued to.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

func (c ClientInfo) ip() *string        { return optional(c.IPAddress) }
func (c ClientInfo) userAgent() *string { return optional(c.UserAgent) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clientFromToken(t *models.RefreshToken) ClientInfo {
	var c ClientInfo
	if t.IPAddress != nil {
		c.IPAddress = *t.IPAddress
	}
	if t.UserAgent != nil {
		c.UserAgent = *t.UserAgent
	}
	return c
}
