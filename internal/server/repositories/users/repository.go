package users

import (
	"context"

	"github.com/dmitrijs2005/habittracker/internal/server/models"
)

// Repository persists user accounts and their role assignments.
type Repository interface {
	// Create inserts user (ID assigned by the caller) together with its roles.
	// A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListRoles(ctx context.Context, userID string) ([]string, error)
}
