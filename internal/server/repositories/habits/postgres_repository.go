package habits

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
	"createdat":       "created_at",
	"priority":        query.PriorityOrder,
	"frequency":       "frequency",
	"positivecounter": "positive_counter",
	"negativecounter": "negative_counter",
}

const columns = `id, user_id, title, description, priority, frequency, tracking_mode,
		positive_counter, negative_counter, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, h *models.Habit) error {
	q := `
		INSERT INTO habits (user_id, title, description, priority, frequency, tracking_mode,
			positive_counter, negative_counter)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, q,
		h.UserID, h.Title, h.Description, h.Priority, h.Frequency, h.TrackingMode,
		h.PositiveCounter, h.NegativeCounter).
		Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, id int64) (*models.Habit, error) {
	q := `SELECT ` + columns + ` FROM habits WHERE id = $1 AND user_id = $2`

	h, err := scanHabit(r.db.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return h, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, lq models.ListQuery) ([]models.Habit, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM habits WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	q := `SELECT ` + columns + ` FROM habits WHERE user_id = $1 ` +
		SortColumns.OrderBy(lq) + ` LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, q, userID, lq.PageSize, lq.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Habit, 0, lq.PageSize)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return out, total, nil
}

func (r *PostgresRepository) Update(ctx context.Context, h *models.Habit) error {
	q := `
		UPDATE habits
		SET title = $3, description = $4, priority = $5, frequency = $6, tracking_mode = $7,
			positive_counter = $8, negative_counter = $9, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, q,
		h.ID, h.UserID, h.Title, h.Description, h.Priority, h.Frequency, h.TrackingMode,
		h.PositiveCounter, h.NegativeCounter).
		Scan(&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, userID)
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

func scanHabit(s scanner) (*models.Habit, error) {
	h := &models.Habit{}
	var (
		description sql.NullString
		pos, neg    sql.NullInt64
	)
	err := s.Scan(&h.ID, &h.UserID, &h.Title, &description, &h.Priority, &h.Frequency, &h.TrackingMode,
		&pos, &neg, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		h.Description = &description.String
	}
	if pos.Valid {
		h.PositiveCounter = &pos.Int64
	}
	if neg.Valid {
		h.NegativeCounter = &neg.Int64
	}
	return h, nil
}
