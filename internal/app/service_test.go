package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/infra/repos/datasets"
	"github.com/mmrzaf/sdcatalog/internal/infra/repos/tasks"
	"github.com/mmrzaf/sdcatalog/internal/infra/store"
	"github.com/mmrzaf/sdcatalog/internal/logging"
)

func newServices(t *testing.T, policy TaskPolicy) (*CatalogueService, *TaskService) {
	t.Helper()

	db, err := store.Open(context.Background(), store.Options{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "catalogue.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := logging.NewLogger("error")
	catalogue := NewCatalogueService(datasets.New(db, store.DriverSQLite), logger)
	taskSvc := NewTaskService(tasks.New(db, store.DriverSQLite), policy, logger)
	return catalogue, taskSvc
}

func TestCatalogueLifecycle(t *testing.T) {
	ctx := context.Background()
	catalogue, _ := newServices(t, DefaultTaskPolicy())

	_, err := catalogue.Insert(ctx, "NODE1", "/data/aml.csv", "AML")
	require.NoError(t, err)

	ds, err := catalogue.FindOne(ctx, "NODE1", "AML")
	require.NoError(t, err)
	assert.Equal(t, "/data/aml.csv", ds.Path)

	removed, err := catalogue.DeleteOne(ctx, "NODE1", "AML", "/data/aml.csv")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = catalogue.FindOne(ctx, "NODE1", "AML")
	assert.True(t, domain.IsNotFound(err))

	removed, err = catalogue.DeleteOne(ctx, "NODE1", "AML", "/data/aml.csv")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCatalogueRejectsBlankFields(t *testing.T) {
	ctx := context.Background()
	catalogue, _ := newServices(t, DefaultTaskPolicy())

	_, err := catalogue.Insert(ctx, "", "/data/x.csv", "AML")
	assert.True(t, domain.IsValidation(err))

	_, err = catalogue.FindOne(ctx, "NODE1", "  ")
	assert.True(t, domain.IsValidation(err))

	n, err := catalogue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCatalogueListAndPurge(t *testing.T) {
	ctx := context.Background()
	catalogue, _ := newServices(t, DefaultTaskPolicy())

	list, err := catalogue.ListAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	for _, node := range []string{"NODE1", "NODE2", "NODE1"} {
		_, err := catalogue.Insert(ctx, node, "/data/"+node, "AML")
		require.NoError(t, err)
	}
	list, err = catalogue.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	n, err := catalogue.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, err := catalogue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCatalogueImportIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	catalogue, _ := newServices(t, DefaultTaskPolicy())

	bad := &domain.DatasetManifest{Datasets: []domain.Dataset{
		{Node: "NODE1", Path: "/a", Disease: "AML"},
		{Node: "NODE2", Path: "", Disease: "AML"},
	}}
	_, err := catalogue.Import(ctx, bad)
	assert.True(t, domain.IsValidation(err))

	count, err := catalogue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	good := &domain.DatasetManifest{Datasets: []domain.Dataset{
		{Node: "NODE1", Path: "/a", Disease: "AML"},
		{Node: "NODE2", Path: "/b", Disease: "CLL"},
	}}
	n, err := catalogue.Import(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = catalogue.Import(ctx, &domain.DatasetManifest{})
	assert.True(t, domain.IsValidation(err))
}

func TestTaskRegisterAndUpdate(t *testing.T) {
	ctx := context.Background()
	_, svc := newServices(t, DefaultTaskPolicy())

	task, err := svc.RegisterTask(ctx, &domain.TaskRequest{
		Username: "u", Model: "m", NSample: 100, Disease: "AML", Condition: "c",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, domain.TaskStatusRunning, task.Status)

	status, err := svc.GetStatus(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusRunning, status)

	require.NoError(t, svc.UpdateStatus(ctx, task.ID, domain.TaskStatusSuccess))
	status, err = svc.GetStatus(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusSuccess, status)

	// Lenient mode records whatever the orchestrator reports.
	require.NoError(t, svc.UpdateStatus(ctx, task.ID, domain.TaskStatusRunning))

	got, err := svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, domain.TaskStatusRunning, got.Status)
}

func TestTaskRegisterValidation(t *testing.T) {
	ctx := context.Background()
	_, svc := newServices(t, DefaultTaskPolicy())

	_, err := svc.RegisterTask(ctx, &domain.TaskRequest{Username: "u", Model: "m", NSample: -1, Disease: "AML"})
	assert.True(t, domain.IsValidation(err))

	_, err = svc.RegisterTask(ctx, nil)
	assert.True(t, domain.IsValidation(err))

	task, err := svc.RegisterTask(ctx, &domain.TaskRequest{Username: "u", Model: "m", Disease: "AML"})
	require.NoError(t, err, "empty condition and zero samples are allowed")
	assert.Empty(t, task.Condition)
}

func TestTaskUnknownID(t *testing.T) {
	ctx := context.Background()
	_, svc := newServices(t, DefaultTaskPolicy())

	_, err := svc.GetStatus(ctx, "missing")
	assert.True(t, domain.IsNotFound(err))

	err = svc.UpdateStatus(ctx, "missing", domain.TaskStatusSuccess)
	assert.True(t, domain.IsNotFound(err))

	err = svc.UpdateStatus(ctx, "missing", domain.TaskStatus("exploded"))
	assert.True(t, domain.IsValidation(err))
}

func TestTaskStrictTransitions(t *testing.T) {
	ctx := context.Background()
	_, svc := newServices(t, TaskPolicy{DefaultStatus: domain.TaskStatusPending, StrictTransitions: true})

	task, err := svc.RegisterTask(ctx, &domain.TaskRequest{Username: "u", Model: "m", NSample: 1, Disease: "AML"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	err = svc.UpdateStatus(ctx, task.ID, domain.TaskStatusSuccess)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, svc.UpdateStatus(ctx, task.ID, domain.TaskStatusRunning))
	require.NoError(t, svc.UpdateStatus(ctx, task.ID, domain.TaskStatusSuccess))

	err = svc.UpdateStatus(ctx, task.ID, domain.TaskStatusRunning)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.False(t, domain.IsStorage(err))

	status, err := svc.GetStatus(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusSuccess, status)
}

func TestTaskList(t *testing.T) {
	ctx := context.Background()
	_, svc := newServices(t, DefaultTaskPolicy())

	for i := 0; i < 3; i++ {
		_, err := svc.RegisterTask(ctx, &domain.TaskRequest{Username: "u", Model: "m", NSample: int64(i), Disease: "AML"})
		require.NoError(t, err)
	}
	list, err := svc.ListTasks(ctx, domain.TaskFilter{Status: domain.TaskStatusRunning, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListTasks(ctx, domain.TaskFilter{Status: "bogus"})
	assert.True(t, domain.IsValidation(err))
}
