package auth

import (
	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// VerificationType tags single-purpose verification tokens.
type VerificationType string

const (
	VerificationEmail     VerificationType = "email-verification"
	VerificationTwoFactor VerificationType = "2fa"
)

// AccessClaims authorizes API calls for UserID.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID    string      `json:"userId"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	TokenType TokenType   `json:"tokenType"`
}

// RefreshClaims identifies a refresh token. TokenID makes every minted token
// unique even when two are signed within the same second.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	TokenID   string    `json:"tokenId"`
	TokenType TokenType `json:"tokenType"`
}

// VerificationClaims back email-verification and 2FA links. Expires is a unix
// timestamp in milliseconds checked by the caller in addition to the JWT exp.
type VerificationClaims struct {
	jwt.RegisteredClaims
	UserID  string           `json:"userId"`
	Email   string           `json:"email"`
	Type    VerificationType `json:"type"`
	Expires int64            `json:"expires"`
}
