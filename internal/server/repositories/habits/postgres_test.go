package habits

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

var habitCols = []string{"id", "user_id", "title", "description", "priority", "frequency", "tracking_mode",
	"positive_counter", "negative_counter", "created_at", "updated_at"}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	zero := int64(0)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+habits.*RETURNING\s+id,\s*created_at,\s*updated_at`).
		WithArgs("u1", "Run", nil, "High", "Daily", "PositiveOnly", zero, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(5), now, now))

	h := &models.Habit{UserID: "u1", Title: "Run", Priority: models.PriorityHigh, Frequency: models.FrequencyDaily,
		TrackingMode: models.TrackingPositiveOnly, PositiveCounter: &zero}
	require.NoError(t, repo.Create(context.Background(), h))
	assert.Equal(t, int64(5), h.ID)
	assert.Equal(t, now, h.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT\s+id,.*FROM\s+habits\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WithArgs(int64(5), "u1").
		WillReturnRows(sqlmock.NewRows(habitCols).
			AddRow(int64(5), "u1", "Run", "every day", "High", "Daily", "Both", int64(3), int64(1), now, now))

	h, err := repo.Get(context.Background(), "u1", 5)
	require.NoError(t, err)
	require.NotNil(t, h.Description)
	assert.Equal(t, "every day", *h.Description)
	assert.Equal(t, models.TrackingBoth, h.TrackingMode)
	require.NotNil(t, h.PositiveCounter)
	assert.Equal(t, int64(3), *h.PositiveCounter)
	require.NotNil(t, h.NegativeCounter)
	assert.Equal(t, int64(1), *h.NegativeCounter)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+habits`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u1", 5)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`^SELECT\s+COUNT\(\*\)\s+FROM\s+habits\s+WHERE\s+user_id\s*=\s*\$1$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 ORDER BY positive_counter DESC, id DESC LIMIT $2 OFFSET $3`)).
		WithArgs("u1", 10, 10).
		WillReturnRows(sqlmock.NewRows(habitCols).
			AddRow(int64(1), "u1", "A", nil, "Low", "Weekly", "NegativeOnly", nil, int64(2), now, now).
			AddRow(int64(2), "u1", "B", nil, "Low", "Weekly", "NegativeOnly", nil, int64(1), now, now))

	got, total, err := repo.List(context.Background(), "u1", models.ListQuery{Page: 2, PageSize: 10, SortBy: "positiveCounter", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].PositiveCounter)
	assert.Nil(t, got[0].Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_CountError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`COUNT`).WillReturnError(errors.New("db down"))

	_, _, err := repo.List(context.Background(), "u1", models.ListQuery{Page: 1, PageSize: 10})
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)UPDATE\s+habits.*WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), &models.Habit{ID: 5, UserID: "other"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	mock.ExpectQuery(`(?s)UPDATE\s+habits.*RETURNING\s+created_at,\s*updated_at`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, updated))

	h := &models.Habit{ID: 5, UserID: "u1", Title: "Run"}
	require.NoError(t, repo.Update(context.Background(), h))
	assert.Equal(t, updated, h.UpdatedAt)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "deleted", affected: 1},
		{name: "missing", affected: 0, wantErr: common.ErrorNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(`^DELETE\s+FROM\s+habits\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2$`).
				WithArgs(int64(5), "u1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.Delete(context.Background(), "u1", 5)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
