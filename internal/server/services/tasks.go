package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/tasks"
)

type TaskRequest struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Priority    models.Priority `json:"priority"`
	DueDate     *time.Time      `json:"dueDate"`
	IsCompleted bool            `json:"isCompleted"`
}

type TaskService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewTaskService(db dbx.DBTX, m repomanager.RepositoryManager, log logging.Logger) *TaskService {
	return &TaskService{db: db, repomanager: m, log: log.With("module", "tasks")}
}

func (s *TaskService) Create(ctx context.Context, userID string, req TaskRequest) (*models.Task, error) {
	if err := validateTask(req); err != nil {
		return nil, err
	}
	t := taskFromRequest(userID, req)
	if err := s.repomanager.Tasks(s.db).Create(ctx, t); err != nil {
		return nil, s.internal(ctx, "task create failed", err)
	}
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, userID string, id int64) (*models.Task, error) {
	t, err := s.repomanager.Tasks(s.db).Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(ctx, "task get failed", err)
	}
	return t, nil
}

func (s *TaskService) List(ctx context.Context, userID string, p ListParams) (*Page[models.Task], error) {
	q, err := p.toQuery(tasks.SortColumns)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repomanager.Tasks(s.db).List(ctx, userID, q)
	if err != nil {
		return nil, s.internal(ctx, "task list failed", err)
	}
	return newPage(q, total, items), nil
}

func (s *TaskService) Update(ctx context.Context, userID string, id int64, req TaskRequest) (*models.Task, error) {
	if err := validateTask(req); err != nil {
		return nil, err
	}
	t := taskFromRequest(userID, req)
	t.ID = id
	if err := s.repomanager.Tasks(s.db).Update(ctx, t); err != nil {
		return nil, s.mapErr(ctx, "task update failed", err)
	}
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.repomanager.Tasks(s.db).Delete(ctx, userID, id); err != nil {
		return s.mapErr(ctx, "task delete failed", err)
	}
	return nil
}

func (s *TaskService) mapErr(ctx context.Context, msg string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return s.internal(ctx, msg, err)
}

func (s *TaskService) internal(ctx context.Context, msg string, err error) error {
	s.log.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

func validateTask(req TaskRequest) error {
	v := &validator{}
	if v.required("title", req.Title) {
		v.maxLen("title", req.Title, 200)
	}
	v.optionalMaxLen("description", req.Description, 1000)
	if !req.Priority.Valid() {
		v.add("priority", "priority must be Low, Medium or High.")
	}
	return v.err()
}

func taskFromRequest(userID string, req TaskRequest) *models.Task {
	t := &models.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		IsCompleted: req.IsCompleted,
	}
	if req.DueDate != nil {
		due := req.DueDate.UTC()
		t.DueDate = &due
	}
	return t
}
