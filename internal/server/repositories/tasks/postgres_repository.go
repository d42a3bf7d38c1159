package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/query"
)

// SortColumns lists the keys accepted by List.
var SortColumns = query.SortColumns{
	"createdat":   "created_at",
	"priority":    query.PriorityOrder,
	"duedate":     "due_date",
	"title":       "title",
	"iscompleted": "is_completed",
}

const columns = `id, user_id, title, description, priority, due_date, is_completed, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Task) error {
	q := `
		INSERT INTO tasks (user_id, title, description, priority, due_date, is_completed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, q, t.UserID, t.Title, t.Description, t.Priority, t.DueDate, t.IsCompleted).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, id int64) (*models.Task, error) {
	q := `SELECT ` + columns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	t, err := scanTask(r.db.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, lq models.ListQuery) ([]models.Task, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	q := `SELECT ` + columns + ` FROM tasks WHERE user_id = $1 ` +
		SortColumns.OrderBy(lq) + ` LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, q, userID, lq.PageSize, lq.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Task, 0, lq.PageSize)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return out, total, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t *models.Task) error {
	q := `
		UPDATE tasks
		SET title = $3, description = $4, priority = $5, due_date = $6, is_completed = $7, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, q, t.ID, t.UserID, t.Title, t.Description, t.Priority, t.DueDate, t.IsCompleted).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.ExpectAffected(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowsAffected) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	t := &models.Task{}
	var (
		description sql.NullString
		due         sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Title, &description, &t.Priority, &due, &t.IsCompleted,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if due.Valid {
		t.DueDate = &due.Time
	}
	return t, nil
}
