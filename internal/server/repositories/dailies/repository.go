// Package dailies stores per-user recurring items and their checklists.
package dailies

import (
	"context"

	"github.com/dmitrijs2005/habittracker/internal/server/models"
)

// Repository methods that touch more than one row expect to run inside a
// transaction owned by the caller.
type Repository interface {
	Create(ctx context.Context, d *models.Daily) error
	Get(ctx context.Context, userID string, id int64) (*models.Daily, error)
	List(ctx context.Context, userID string, q models.ListQuery) ([]models.Daily, int64, error)
	Update(ctx context.Context, d *models.Daily) error
	Delete(ctx context.Context, userID string, id int64) error

	ListChecklist(ctx context.Context, dailyID int64) ([]models.ChecklistItem, error)
	AddChecklistItem(ctx context.Context, item *models.ChecklistItem) error
	UpdateChecklistItem(ctx context.Context, item *models.ChecklistItem) error
	DeleteChecklistItem(ctx context.Context, dailyID, id int64) error
}
