// Package auth mints and verifies the signed tokens used by the identity
// service: access tokens, rotating refresh tokens and verification tokens.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	emailVerificationJWTTTL = time.Hour
	twoFactorJWTTTL         = 10 * time.Minute
)

// CodecConfig carries the secrets and lifetimes for a Codec.
type CodecConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec signs tokens with HS256. Access and verification tokens share the
// access secret; refresh tokens use their own.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
	newID         func() string
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &Codec{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
		newID:         uuid.NewString,
	}, nil
}

// RefreshTTL is how long a refresh token minted now stays valid.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *Codec) IssueAccess(userID, email string, role models.Role) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: c.registered(c.accessTTL),
		UserID:           userID,
		Email:            email,
		Role:             role,
		TokenType:        TokenTypeAccess,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
}

// IssueRefresh returns the signed token and its unique token id.
func (c *Codec) IssueRefresh(userID, email string) (string, string, error) {
	tokenID := c.newID()
	claims := RefreshClaims{
		RegisteredClaims: c.registered(c.refreshTTL),
		UserID:           userID,
		Email:            email,
		TokenID:          tokenID,
		TokenType:        TokenTypeRefresh,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", "", err
	}
	return signed, tokenID, nil
}

// IssueVerification mints an email-verification or 2FA token. The embedded
// expires value is independent from the JWT exp, which is one hour for
// email verification and ten minutes for 2FA.
func (c *Codec) IssueVerification(userID, email string, typ VerificationType, expires time.Time) (string, error) {
	ttl := emailVerificationJWTTTL
	if typ == VerificationTwoFactor {
		ttl = twoFactorJWTTTL
	}
	claims := VerificationClaims{
		RegisteredClaims: c.registered(ttl),
		UserID:           userID,
		Email:            email,
		Type:             typ,
		Expires:          expires.UnixMilli(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
}

// VerifyAccess returns the claims of a valid access token, or nil.
func (c *Codec) VerifyAccess(token string) *AccessClaims {
	claims := &AccessClaims{}
	if !c.parse(token, claims, c.accessSecret) || claims.TokenType != TokenTypeAccess {
		return nil
	}
	return claims
}

// VerifyRefresh returns the claims of a valid refresh token, or nil.
func (c *Codec) VerifyRefresh(token string) *RefreshClaims {
	claims := &RefreshClaims{}
	if !c.parse(token, claims, c.refreshSecret) || claims.TokenType != TokenTypeRefresh {
		return nil
	}
	return claims
}

// VerifyGeneric checks the signature and JWT expiry of a token signed with
// the access secret. Checking Type and Expires is left to the caller.
func (c *Codec) VerifyGeneric(token string) *VerificationClaims {
	claims := &VerificationClaims{}
	if !c.parse(token, claims, c.accessSecret) {
		return nil
	}
	return claims
}

func (c *Codec) parse(token string, claims jwt.Claims, secret []byte) bool {
	if token == "" {
		return false
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	return err == nil && parsed.Valid
}
