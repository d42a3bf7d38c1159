package dailies

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
	"createdat": "created_at",
	"startdate": "start_date",
	"priority":  query.PriorityOrder,
}

const columns = `id, user_id, title, description, priority, repeat_duration, start_date, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts d and its checklist items.
func (r *PostgresRepository) Create(ctx context.Context, d *models.Daily) error {
	q := `
		INSERT INTO dailies (user_id, title, description, priority, repeat_duration, start_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, q, d.UserID, d.Title, d.Description, d.Priority, d.RepeatDuration, d.StartDate).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for i := range d.Checklist {
		d.Checklist[i].DailyID = d.ID
		if err := r.AddChecklistItem(ctx, &d.Checklist[i]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the daily with its checklist loaded.
func (r *PostgresRepository) Get(ctx context.Context, userID string, id int64) (*models.Daily, error) {
	q := `SELECT ` + columns + ` FROM dailies WHERE id = $1 AND user_id = $2`

	d, err := scanDaily(r.db.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if d.Checklist, err = r.ListChecklist(ctx, d.ID); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, lq models.ListQuery) ([]models.Daily, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dailies WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	q := `SELECT ` + columns + ` FROM dailies WHERE user_id = $1 ` +
		SortColumns.OrderBy(lq) + ` LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, q, userID, lq.PageSize, lq.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	out := make([]models.Daily, 0, lq.PageSize)
	for rows.Next() {
		d, err := scanDaily(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *d)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	// rows must be closed before issuing further queries on a single Tx.
	for i := range out {
		if out[i].Checklist, err = r.ListChecklist(ctx, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// Update writes the daily's own columns; the checklist is synced separately.
func (r *PostgresRepository) Update(ctx context.Context, d *models.Daily) error {
	q := `
		UPDATE dailies
		SET title = $3, description = $4, priority = $5, repeat_duration = $6, start_date = $7, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, q, d.ID, d.UserID, d.Title, d.Description, d.Priority, d.RepeatDuration, d.StartDate).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the daily; checklist rows go with it via ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dailies WHERE id = $1 AND user_id = $2`, id, userID)
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

func (r *PostgresRepository) ListChecklist(ctx context.Context, dailyID int64) ([]models.ChecklistItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, daily_id, description, is_completed FROM daily_checklists WHERE daily_id = $1 ORDER BY id`, dailyID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := []models.ChecklistItem{}
	for rows.Next() {
		var it models.ChecklistItem
		if err := rows.Scan(&it.ID, &it.DailyID, &it.Description, &it.IsCompleted); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) AddChecklistItem(ctx context.Context, item *models.ChecklistItem) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO daily_checklists (daily_id, description, is_completed) VALUES ($1, $2, $3) RETURNING id`,
		item.DailyID, item.Description, item.IsCompleted).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateChecklistItem(ctx context.Context, item *models.ChecklistItem) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE daily_checklists SET description = $3, is_completed = $4 WHERE id = $1 AND daily_id = $2`,
		item.ID, item.DailyID, item.Description, item.IsCompleted)
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

func (r *PostgresRepository) DeleteChecklistItem(ctx context.Context, dailyID, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM daily_checklists WHERE id = $1 AND daily_id = $2`, id, dailyID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDaily(s scanner) (*models.Daily, error) {
	d := &models.Daily{}
	var description sql.NullString
	if err := s.Scan(&d.ID, &d.UserID, &d.Title, &description, &d.Priority, &d.RepeatDuration, &d.StartDate,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		d.Description = &description.String
	}
	return d, nil
}
