package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/dmitrijs2005/talenthub/internal/common"
	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/dmitrijs2005/talenthub/internal/server/auth"
	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/dmitrijs2005/talenthub/internal/server/services"
)

// AuthAPI is the part of services.AuthService the handlers call.
type AuthAPI interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, in services.LoginInput, client services.ClientInfo) (services.LoginResult, error)
	Verify2FA(ctx context.Context, in services.Verify2FAInput, client services.ClientInfo) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error)
	VerifyAccessToken(token string) *auth.AccessClaims
}

type handlers struct {
	auth   AuthAPI
	logger logging.Logger
}

type registerRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verify2FARequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type twoFactorRequired struct {
	RequiresTwoFactor bool              `json:"requiresTwoFactor"`
	Email             string            `json:"email"`
	User              models.PublicUser `json:"user"`
}

func clientInfo(r *http.Request) services.ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return services.ClientInfo{IPAddress: ip, UserAgent: r.UserAgent()}
}

// badBody answers a request whose body could not be decoded.
func (h *handlers) badBody(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug(r.Context(), "malformed request body", "error", err)
	h.fail(w, r, http.StatusBadRequest, "Invalid request body", nil)
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w, r, err)
		return
	}

	res, err := h.auth.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.failErr(w, r, err)
		return
	}
	h.success(w, r, http.StatusCreated,
		"Registration successful. Please check your email to verify your account.",
		map[string]string{"userId": res.UserID})
}

func (h *handlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.fail(w, r, http.StatusBadRequest, "Validation error occurred.",
			&errorDetails{Field: "token", Message: "Verification token is required"})
		return
	}

	if err := h.auth.VerifyEmail(r.Context(), token); err != nil {
		var se *services.Error
		if errors.As(err, &se) && !errors.Is(se, common.ErrorInternal) {
			h.fail(w, r, http.StatusBadRequest, se.Message, nil)
			return
		}
		h.failErr(w, r, err)
		return
	}
	h.success(w, r, http.StatusOK, "Email verified successfully", nil)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), services.LoginInput{Email: req.Email, Password: req.Password}, clientInfo(r))
	if err != nil {
		h.failErr(w, r, err)
		return
	}

	switch v := res.(type) {
	case services.LoginAuthenticated:
		h.success(w, r, http.StatusOK, "Login successful", v.Session)
	case services.LoginTwoFactorRequired:
		h.success(w, r, http.StatusAccepted, "Two-factor authentication required", twoFactorRequired{
			RequiresTwoFactor: true,
			Email:             v.Email,
			User:              v.User,
		})
	default:
		h.fail(w, r, http.StatusInternalServerError, "Login failed", nil)
	}
}

func (h *handlers) verify2FA(w http.ResponseWriter, r *http.Request) {
	var req verify2FARequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w, r, err)
		return
	}

	session, err := h.auth.Verify2FA(r.Context(), services.Verify2FAInput{Email: req.Email, Code: req.Code}, clientInfo(r))
	if err != nil {
		h.failErr(w, r, err)
		return
	}
	h.success(w, r, http.StatusOK, "Two-factor authentication successful", session)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w, r, err)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.failErr(w, r, err)
		return
	}
	h.success(w, r, http.StatusOK, "Token refreshed successfully", pair)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w, r, err)
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		h.failErr(w, r, err)
		return
	}
	h.success(w, r, http.StatusOK, "Logged out successfully", nil)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.fail(w, r, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		h.failErr(w, r, err)
		return
	}
	h.success(w, r, http.StatusOK, "Current user", user)
}
