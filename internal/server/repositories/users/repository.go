// Package users declares the credential store: persistence for user accounts
// and their password hashes.
package users

import (
	"context"

	"github.com/dmitrijs2005/talenthub/internal/server/models"
)

// Repository defines lookups and updates on user accounts. Lookups return
// common.ErrorNotFound when no row matches; Create returns
// common.ErrorAlreadyExists when the email is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindFirstByRole(ctx context.Context, role models.Role) (*models.User, error)
	UpdateFlags(ctx context.Context, id string, flags models.UserFlags) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
}
