package httpapi

import (
	"context"
	"io"
	"testing"

	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/dmitrijs2005/talenthub/internal/server/auth"
	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/dmitrijs2005/talenthub/internal/server/services"
)

type fakeAuth struct {
	registerRes *services.RegisterResult
	registerErr error
	verifyErr   error
	loginRes    services.LoginResult
	loginErr    error
	sessionRes  *services.Session
	sessionErr  error
	pairRes     *services.TokenPair
	pairErr     error
	logoutErr   error
	user        *models.PublicUser
	userErr     error
	claims      *auth.AccessClaims

	gotRegister services.RegisterInput
	gotClient   services.ClientInfo
	gotToken    string
	gotUserID   string
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (*services.RegisterResult, error) {
	f.gotRegister = in
	return f.registerRes, f.registerErr
}

func (f *fakeAuth) VerifyEmail(_ context.Context, token string) error {
	f.gotToken = token
	return f.verifyErr
}

func (f *fakeAuth) Login(_ context.Context, _ services.LoginInput, client services.ClientInfo) (services.LoginResult, error) {
	f.gotClient = client
	return f.loginRes, f.loginErr
}

func (f *fakeAuth) Verify2FA(_ context.Context, _ services.Verify2FAInput, client services.ClientInfo) (*services.Session, error) {
	f.gotClient = client
	return f.sessionRes, f.sessionErr
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (*services.TokenPair, error) {
	f.gotToken = token
	return f.pairRes, f.pairErr
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.gotToken = token
	return f.logoutErr
}

func (f *fakeAuth) CurrentUser(_ context.Context, userID string) (*models.PublicUser, error) {
	f.gotUserID = userID
	return f.user, f.userErr
}

func (f *fakeAuth) VerifyAccessToken(token string) *auth.AccessClaims {
	if token == "good" {
		return f.claims
	}
	return nil
}

func discardLogger(t *testing.T) logging.Logger {
	t.Helper()
	return logging.New(logging.FormatJSON, "error", io.Discard)
}
