// Package services contains server-side business logic. This file implements
// AuthService, which handles registration, email verification, login with an
// optional emailed second factor, refresh token rotation and logout.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/talenthub/internal/common"
	"github.com/dmitrijs2005/talenthub/internal/dbx"
	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/dmitrijs2005/talenthub/internal/server/auth"
	"github.com/dmitrijs2005/talenthub/internal/server/codecache"
	"github.com/dmitrijs2005/talenthub/internal/server/config"
	"github.com/dmitrijs2005/talenthub/internal/server/metrics"
	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/dmitrijs2005/talenthub/internal/server/repositories/repomanager"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation names used for metrics and spans.
const (
	OpRegister    = "register"
	OpVerifyEmail = "verify_email"
	OpLogin       = "login"
	OpVerify2FA   = "verify_2fa"
	OpRefresh     = "refresh"
	OpLogout      = "logout"
)

// Notifier delivers account emails. Both methods are best-effort and report
// whether the message was handed to the transport.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, to, token string) bool
	Send2FACode(ctx context.Context, to, code string) bool
}

// dummyHash is compared against when the email is unknown so that a failed
// login costs one bcrypt comparison either way.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z6Yl4u4j0cXrG6D1sWc7YI0K"

// AuthDeps are the collaborators of AuthService.
type AuthDeps struct {
	DB          *sql.DB
	RepoManager repomanager.RepositoryManager
	Codec       *auth.Codec
	Codes       codecache.Cache
	Notifier    Notifier
	Hasher      auth.PasswordHasher
	Logger      logging.Logger
	Metrics     *metrics.Auth
}

type AuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	codec           *auth.Codec
	codes           codecache.Cache
	notifier        Notifier
	hasher          auth.PasswordHasher
	logger          logging.Logger
	metrics         *metrics.Auth
	tracer          trace.Tracer
	verificationTTL time.Duration
	twoFactorTTL    time.Duration

	now     func() time.Time
	newCode func() (string, error)
	withTx  func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
}

// NewAuthService wires the service from its collaborators and server config.
func NewAuthService(d AuthDeps, cfg *config.Config) *AuthService {
	s := &AuthService{
		db:              d.DB,
		repomanager:     d.RepoManager,
		codec:           d.Codec,
		codes:           d.Codes,
		notifier:        d.Notifier,
		hasher:          d.Hasher,
		logger:          d.Logger.With("module", "services.auth"),
		metrics:         d.Metrics,
		tracer:          otel.Tracer("github.com/dmitrijs2005/talenthub/internal/server/services"),
		verificationTTL: cfg.VerificationTokenValidityDuration,
		twoFactorTTL:    cfg.TwoFactorCodeValidityDuration,
		now:             time.Now,
		newCode: func() (string, error) {
			return common.MakeNumericCode(common.TwoFactorCodeLength)
		},
	}
	s.withTx = func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return dbx.WithTx(ctx, s.db, nil, fn)
	}
	return s
}

// observe closes span and records the outcome of op.
func (s *AuthService) observe(span trace.Span, op string, err error, outcome string) {
	defer span.End()
	if err == nil {
		s.metrics.Operation(op, outcome)
		return
	}
	if errors.Is(err, common.ErrorInternal) {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.metrics.Operation(op, metrics.OutcomeError)
		return
	}
	s.metrics.Operation(op, metrics.OutcomeRejected)
}

// Register creates a CANDIDATE or EMPLOYER account with two-factor sign-in
// disabled and mails an email verification link. Mail failures do not fail
// registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *RegisterResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer func() { s.observe(span, OpRegister, err, metrics.OutcomeSuccess) }()

	if verr := in.normalize(); verr != nil {
		return nil, verr
	}

	userRepo := s.repomanager.Users(s.db)

	if _, err := userRepo.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "registration lookup failed", "error", err)
		return nil, internalError("Registration failed", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, internalError("Registration failed", err)
	}

	user, err := userRepo.Create(ctx, &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         in.Role,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, ErrEmailTaken
		}
		s.logger.Error(ctx, "user insert failed", "error", err)
		return nil, internalError("Registration failed", err)
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	token, err := s.codec.IssueVerification(user.ID, user.Email, auth.VerificationEmail, s.now().Add(s.verificationTTL))
	if err != nil {
		s.logger.Error(ctx, "verification token signing failed", "user_id", user.ID, "error", err)
	} else if !s.notifier.SendVerificationEmail(ctx, user.Email, token) {
		s.logger.Warn(ctx, "verification email not delivered", "user_id", user.ID)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "role", string(user.Role))
	return &RegisterResult{UserID: user.ID}, nil
}

// VerifyEmail consumes an email-verification token and enables two-factor
// sign-in for its owner. Every rejection returns ErrInvalidVerificationToken.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifyEmail")
	defer func() { s.observe(span, OpVerifyEmail, err, metrics.OutcomeSuccess) }()

	claims := s.codec.VerifyGeneric(token)
	if claims == nil || claims.Type != auth.VerificationEmail || claims.Expires < s.now().UnixMilli() {
		return ErrInvalidVerificationToken
	}

	userRepo := s.repomanager.Users(s.db)
	user, err := userRepo.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrInvalidVerificationToken
		}
		s.logger.Error(ctx, "verification lookup failed", "error", err)
		return internalError("Email verification failed", err)
	}

	enabled := true
	if _, err := userRepo.UpdateFlags(ctx, user.ID, models.UserFlags{TwoFactorEnabled: &enabled}); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrInvalidVerificationToken
		}
		s.logger.Error(ctx, "enabling two-factor failed", "user_id", user.ID, "error", err)
		return internalError("Email verification failed", err)
	}

	s.logger.Info(ctx, "email verified", "user_id", user.ID)
	return nil
}

// Login checks the password. Accounts without two-factor sign-in receive a
// session immediately; the others get a code by email and a
// LoginTwoFactorRequired result.
func (s *AuthService) Login(ctx context.Context, in LoginInput, client ClientInfo) (res LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	outcome := metrics.OutcomeSuccess
	defer func() { s.observe(span, OpLogin, err, outcome) }()

	if verr := in.normalize(); verr != nil {
		return nil, verr
	}

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Compare(dummyHash, in.Password)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error(ctx, "login lookup failed", "error", err)
		return nil, internalError("Login failed", err)
	}

	if !s.hasher.Compare(user.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	if !user.TwoFactorEnabled {
		session, err := s.startSession(ctx, s.db, user, client)
		if err != nil {
			s.logger.Error(ctx, "session start failed", "user_id", user.ID, "error", err)
			return nil, internalError("Login failed", err)
		}
		return LoginAuthenticated{Session: *session}, nil
	}

	code, err := s.newCode()
	if err != nil {
		s.logger.Error(ctx, "code generation failed", "error", err)
		return nil, internalError("Login failed", err)
	}
	if err := s.codes.Set(ctx, codecache.TwoFactorKey(user.Email), code, s.twoFactorTTL); err != nil {
		s.logger.Error(ctx, "storing two-factor code failed", "user_id", user.ID, "error", err)
		return nil, internalError("Login failed", err)
	}
	if !s.notifier.Send2FACode(ctx, user.Email, code) {
		s.logger.Warn(ctx, "two-factor code not delivered", "user_id", user.ID)
	}

	outcome = metrics.OutcomeTwoFactor
	return LoginTwoFactorRequired{User: user.Public(), Email: user.Email}, nil
}

// Verify2FA completes a pending two-factor login. A code can be consumed
// once; of several concurrent submissions only one succeeds.
func (s *AuthService) Verify2FA(ctx context.Context, in Verify2FAInput, client ClientInfo) (res *Session, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Verify2FA")
	defer func() { s.observe(span, OpVerify2FA, err, metrics.OutcomeSuccess) }()

	if verr := in.normalize(); verr != nil {
		return nil, verr
	}

	key := codecache.TwoFactorKey(in.Email)
	stored, err := s.codes.Get(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrInvalidCode
		}
		s.logger.Error(ctx, "reading two-factor code failed", "error", err)
		return nil, internalError("Verification failed", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(in.Code)) != 1 {
		return nil, ErrInvalidCode
	}

	deleted, err := s.codes.Delete(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "consuming two-factor code failed", "error", err)
		return nil, internalError("Verification failed", err)
	}
	if !deleted {
		return nil, ErrInvalidCode
	}

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrInvalidCode
		}
		s.logger.Error(ctx, "two-factor user lookup failed", "error", err)
		return nil, internalError("Verification failed", err)
	}

	session, err := s.startSession(ctx, s.db, user, client)
	if err != nil {
		s.logger.Error(ctx, "session start failed", "user_id", user.ID, "error", err)
		return nil, internalError("Verification failed", err)
	}
	return session, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked in the same transaction that stores its successor, so a token
// rotates at most once even under concurrent use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (res *TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh")
	defer func() { s.observe(span, OpRefresh, err, metrics.OutcomeSuccess) }()

	if refreshToken == "" {
		return nil, ErrRefreshTokenRequired
	}

	claims := s.codec.VerifyRefresh(refreshToken)
	if claims == nil {
		return nil, ErrInvalidRefreshToken
	}

	now := s.now()
	row, err := s.repomanager.RefreshTokens(s.db).FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error(ctx, "refresh token lookup failed", "error", err)
		return nil, internalError("Failed to refresh token", err)
	}
	if row.Revoked {
		s.metrics.RefreshReuse()
		s.logger.Warn(ctx, "revoked refresh token presented", "user_id", row.UserID, "token_id", row.ID)
		return nil, ErrInvalidRefreshToken
	}
	if !row.Usable(now) {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error(ctx, "refresh user lookup failed", "error", err)
		return nil, internalError("Failed to refresh token", err)
	}
	if user.ID != row.UserID {
		return nil, ErrInvalidRefreshToken
	}

	var session *Session
	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		revoked, err := s.repomanager.RefreshTokens(tx).Revoke(ctx, row.ID)
		if err != nil {
			return err
		}
		if !revoked {
			return common.ErrRefreshTokenReused
		}
		session, err = s.startSession(ctx, tx, user, clientFromToken(row))
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrRefreshTokenReused) {
			s.metrics.RefreshReuse()
			s.logger.Warn(ctx, "concurrent refresh token reuse", "user_id", user.ID, "token_id", row.ID)
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error(ctx, "refresh rotation failed", "user_id", user.ID, "error", err)
		return nil, internalError("Failed to refresh token", err)
	}

	s.purgeLedger(ctx, now)

	return &session.TokenPair, nil
}

// Logout revokes a refresh token. Unknown or already revoked tokens are not
// an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer func() { s.observe(span, OpLogout, err, metrics.OutcomeSuccess) }()

	if refreshToken == "" {
		return ErrRefreshTokenRequired
	}

	repo := s.repomanager.RefreshTokens(s.db)
	row, err := repo.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		s.logger.Error(ctx, "logout lookup failed", "error", err)
		return internalError("Logout failed", err)
	}
	if _, err := repo.Revoke(ctx, row.ID); err != nil {
		s.logger.Error(ctx, "logout revoke failed", "token_id", row.ID, "error", err)
		return internalError("Logout failed", err)
	}
	return nil
}

// CurrentUser returns the sanitized account for an authenticated caller.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error(ctx, "current user lookup failed", "user_id", userID, "error", err)
		return nil, internalError("Failed to load user", err)
	}
	p := user.Public()
	return &p, nil
}

// VerifyAccessToken resolves a bearer token to its claims, or nil.
func (s *AuthService) VerifyAccessToken(token string) *auth.AccessClaims {
	return s.codec.VerifyAccess(token)
}

// startSession mints an access/refresh pair for user and records the refresh
// token in the ledger through db.
func (s *AuthService) startSession(ctx context.Context, db dbx.DBTX, user *models.User, client ClientInfo) (*Session, error) {
	access, err := s.codec.IssueAccess(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.codec.IssueRefresh(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	_, err = s.repomanager.RefreshTokens(db).Insert(ctx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: s.now().Add(s.codec.RefreshTTL()),
		IPAddress: client.ip(),
		UserAgent: client.userAgent(),
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		User:      user.Public(),
		TokenPair: TokenPair{AccessToken: access, RefreshToken: refresh},
	}, nil
}

func (s *AuthService) purgeLedger(ctx context.Context, now time.Time) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpiredOrRevoked(ctx, now)
	if err != nil {
		s.logger.Warn(ctx, "refresh ledger cleanup failed", "error", err)
		return
	}
	s.metrics.TokensPurged(n)
}
