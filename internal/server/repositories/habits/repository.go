// Package habits stores per-user habits.
package habits

import (
	"context"

	"github.com/dmitrijs2005/habittracker/internal/server/models"
)

// Repository is scoped by user id on every call; rows of other users behave
// as if they did not exist.
type Repository interface {
	Create(ctx context.Context, h *models.Habit) error
	Get(ctx context.Context, userID string, id int64) (*models.Habit, error)
	List(ctx context.Context, userID string, q models.ListQuery) ([]models.Habit, int64, error)
	Update(ctx context.Context, h *models.Habit) error
	Delete(ctx context.Context, userID string, id int64) error
}
