package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/talenthub/internal/common"
	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/dmitrijs2005/talenthub/internal/server/auth"
	"github.com/dmitrijs2005/talenthub/internal/server/metrics"
	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/dmitrijs2005/talenthub/internal/server/repositories/repomanager"
)

// AdminService backs the operator CLI: schema migrations, bootstrapping the
// first administrator and ledger maintenance.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	logger      logging.Logger
	metrics     *metrics.Auth
	now         func() time.Time
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, logger logging.Logger, mx *metrics.Auth) *AdminService {
	return &AdminService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		logger:      logger.With("module", "services.admin"),
		metrics:     mx,
		now:         time.Now,
	}
}

func (s *AdminService) Migrate(ctx context.Context) error {
	if err := s.repomanager.RunMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// CreateAdmin creates an ADMIN account unless one already exists. The
// returned bool reports whether a new account was created; when it is false
// the existing administrator is returned.
func (s *AdminService) CreateAdmin(ctx context.Context, name, email, password string) (*models.PublicUser, bool, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if verr := validateAccount(name, email, password); verr != nil {
		return nil, false, verr
	}

	repo := s.repomanager.Users(s.db)

	existing, err := repo.FindFirstByRole(ctx, models.RoleAdmin)
	if err == nil {
		p := existing.Public()
		return &p, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, fmt.Errorf("admin lookup: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, false, ErrEmailTaken
		}
		return nil, false, fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info(ctx, "administrator created", "user_id", user.ID)
	p := user.Public()
	return &p, true, nil
}

// SetPassword replaces the password of the account registered with email.
func (s *AdminService) SetPassword(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if msg := passwordProblem(password); msg != "" {
		return validationError("password", msg)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("user lookup: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info(ctx, "password changed", "user_id", user.ID)
	return nil
}

// PurgeTokens deletes expired and revoked refresh tokens and returns how many
// were removed.
func (s *AdminService) PurgeTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpiredOrRevoked(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	s.metrics.TokensPurged(n)
	s.logger.Info(ctx, "refresh tokens purged", "count", n)
	return n, nil
}
