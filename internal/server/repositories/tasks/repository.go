// Package tasks stores per-user one-off tasks.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/habittracker/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.Task) error
	Get(ctx context.Context, userID string, id int64) (*models.Task, error)
	List(ctx context.Context, userID string, q models.ListQuery) ([]models.Task, int64, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, userID string, id int64) error
}
