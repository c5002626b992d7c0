package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/talenthub/internal/common"
	"github.com/dmitrijs2005/talenthub/internal/dbx"
	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, name, role, two_factor_enabled, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, password_hash, name, role, two_factor_enabled)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Role, user.TwoFactorEnabled,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) FindFirstByRole(ctx context.Context, role models.Role) (*models.User, error) {
	return r.getOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at LIMIT 1`, role)
}

// UpdateFlags applies the non-nil fields of flags and returns the updated row.
func (r *PostgresRepository) UpdateFlags(ctx context.Context, id string, flags models.UserFlags) (*models.User, error) {
	query :=
		`UPDATE users
         SET two_factor_enabled = COALESCE($2, two_factor_enabled), updated_at = now()
         WHERE id = $1
         RETURNING ` + userColumns

	return r.getOne(ctx, query, id, flags.TwoFactorEnabled)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	if err := sqlscan.Get(ctx, r.db, user, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
