package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/dailies"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/repomanager"
)

type ChecklistItemRequest struct {
	ID          *int64 `json:"id"`
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

type DailyRequest struct {
	Title          string                 `json:"title"`
	Description    *string                `json:"description"`
	Priority       models.Priority        `json:"priority"`
	RepeatDuration models.RepeatDuration  `json:"repeatDuration"`
	StartDate      time.Time              `json:"startDate"`
	Checklist      []ChecklistItemRequest `json:"checklists"`
}

// DailyService writes a daily and its checklist in one transaction.
type DailyService struct {
	db          dbx.DBTX
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewDailyService(db dbx.DBTX, tx dbx.Transactor, m repomanager.RepositoryManager, log logging.Logger) *DailyService {
	return &DailyService{db: db, tx: tx, repomanager: m, log: log.With("module", "dailies")}
}

func (s *DailyService) Create(ctx context.Context, userID string, req DailyRequest) (*models.Daily, error) {
	if err := validateDaily(req); err != nil {
		return nil, err
	}

	d := dailyFromRequest(userID, req)
	for _, it := range req.Checklist {
		d.Checklist = append(d.Checklist, models.ChecklistItem{Description: it.Description, IsCompleted: it.IsCompleted})
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Dailies(tx).Create(ctx, d)
	})
	if err != nil {
		return nil, s.internal(ctx, "daily create failed", err)
	}
	return d, nil
}

func (s *DailyService) Get(ctx context.Context, userID string, id int64) (*models.Daily, error) {
	d, err := s.repomanager.Dailies(s.db).Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(ctx, "daily get failed", err)
	}
	return d, nil
}

func (s *DailyService) List(ctx context.Context, userID string, p ListParams) (*Page[models.Daily], error) {
	q, err := p.toQuery(dailies.SortColumns)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repomanager.Dailies(s.db).List(ctx, userID, q)
	if err != nil {
		return nil, s.internal(ctx, "daily list failed", err)
	}
	return newPage(q, total, items), nil
}

// Update replaces the daily and synchronises its checklist by id: known ids
// are updated, id-less or unknown items are inserted, missing ones deleted.
func (s *DailyService) Update(ctx context.Context, userID string, id int64, req DailyRequest) (*models.Daily, error) {
	if err := validateDaily(req); err != nil {
		return nil, err
	}

	d := dailyFromRequest(userID, req)
	d.ID = id

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Dailies(tx)
		if err := repo.Update(ctx, d); err != nil {
			return err
		}
		existing, err := repo.ListChecklist(ctx, id)
		if err != nil {
			return err
		}

		plan := planChecklistSync(id, existing, req.Checklist)
		for i := range plan.update {
			if err := repo.UpdateChecklistItem(ctx, &plan.update[i]); err != nil {
				return err
			}
		}
		for i := range plan.insert {
			if err := repo.AddChecklistItem(ctx, &plan.insert[i]); err != nil {
				return err
			}
		}
		for _, delID := range plan.remove {
			if err := repo.DeleteChecklistItem(ctx, id, delID); err != nil {
				return err
			}
		}

		d.Checklist, err = repo.ListChecklist(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.mapErr(ctx, "daily update failed", err)
	}
	return d, nil
}

func (s *DailyService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.repomanager.Dailies(s.db).Delete(ctx, userID, id); err != nil {
		return s.mapErr(ctx, "daily delete failed", err)
	}
	return nil
}

func (s *DailyService) mapErr(ctx context.Context, msg string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return s.internal(ctx, msg, err)
}

func (s *DailyService) internal(ctx context.Context, msg string, err error) error {
	s.log.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

type checklistPlan struct {
	update []models.ChecklistItem
	insert []models.ChecklistItem
	remove []int64
}

func planChecklistSync(dailyID int64, existing []models.ChecklistItem, incoming []ChecklistItemRequest) checklistPlan {
	known := make(map[int64]bool, len(existing))
	for _, e := range existing {
		known[e.ID] = true
	}

	var plan checklistPlan
	kept := map[int64]bool{}
	for _, in := range incoming {
		item := models.ChecklistItem{DailyID: dailyID, Description: in.Description, IsCompleted: in.IsCompleted}
		if in.ID != nil && known[*in.ID] && !kept[*in.ID] {
			item.ID = *in.ID
			kept[item.ID] = true
			plan.update = append(plan.update, item)
			continue
		}
		plan.insert = append(plan.insert, item)
	}
	for _, e := range existing {
		if !kept[e.ID] {
			plan.remove = append(plan.remove, e.ID)
		}
	}
	return plan
}

func validateDaily(req DailyRequest) error {
	v := &validator{}
	if v.required("title", req.Title) {
		v.maxLen("title", req.Title, 200)
	}
	v.optionalMaxLen("description", req.Description, 1000)
	if !req.Priority.Valid() {
		v.add("priority", "priority must be Low, Medium or High.")
	}
	if !req.RepeatDuration.Valid() {
		v.add("repeatDuration", "repeatDuration must be Daily, Weekly, Monthly or Yearly.")
	}
	if req.StartDate.IsZero() {
		v.add("startDate", "startDate is required.")
	}
	for _, it := range req.Checklist {
		if v.required("checklists.description", it.Description) {
			v.maxLen("checklists.description", it.Description, 300)
		}
	}
	return v.err()
}

func dailyFromRequest(userID string, req DailyRequest) *models.Daily {
	return &models.Daily{
		UserID:         userID,
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		RepeatDuration: req.RepeatDuration,
		StartDate:      req.StartDate.UTC(),
	}
}
