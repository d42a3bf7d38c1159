package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
)

func TestTaskService_Lifecycle(t *testing.T) {
	repos := newFakeRepoManager()
	svc := NewTaskService(nil, repos, logging.Nop{})
	ctx := context.Background()

	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("EET", 2*3600))
	task, err := svc.Create(ctx, "u1", TaskRequest{Title: "File taxes", Priority: models.PriorityHigh, DueDate: &due})
	require.NoError(t, err)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.UTC, task.DueDate.Location())
	assert.True(t, due.Equal(*task.DueDate))

	updated, err := svc.Update(ctx, "u1", task.ID, TaskRequest{Title: "File taxes", Priority: models.PriorityHigh, IsCompleted: true})
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)
	assert.Nil(t, updated.DueDate)

	got, err := svc.Get(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)

	_, err = svc.Update(ctx, "u2", task.ID, TaskRequest{Title: "x", Priority: models.PriorityLow})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, svc.Delete(ctx, "u1", task.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", task.ID), common.ErrorNotFound)
}

func TestTaskService_Validation(t *testing.T) {
	svc := NewTaskService(nil, newFakeRepoManager(), logging.Nop{})
	long := strings.Repeat("d", 1001)

	_, err := svc.Create(context.Background(), "u1", TaskRequest{Title: strings.Repeat("t", 201), Description: &long, Priority: "Urgent"})
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, []string{"title", "description", "priority"}, fieldNames(t, err))
}
