package board

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/pkg/cerr"
)

func TestSnapshotService(t *testing.T) {
	ctx := context.Background()
	store, st := newTestStore(t)
	svc := NewSnapshotService(store, st)

	store.AddTask(ctx, TaskInput{Title: "a"})
	first, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TaskCount)

	store.AddTask(ctx, TaskInput{Title: "b"})
	second, err := svc.Create(ctx)
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, 2, list[0].TaskCount)
	assert.Equal(t, first.ID, list[1].ID)

	payload, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, payload.Board.Tasks, 1)

	res, err := svc.Restore(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, 1, store.Statistics().TotalTasks)

	n, err := svc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSnapshotService_Errors(t *testing.T) {
	ctx := context.Background()
	store, st := newTestStore(t)
	svc := NewSnapshotService(store, st)

	_, err := svc.Get(ctx, "../kanban-tasks")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = svc.Get(ctx, ulid.Make().String())
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	_, err = svc.Restore(ctx, ulid.Make().String())
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	st.FailWrites = true
	_, err = svc.Create(ctx)
	assert.True(t, cerr.IsCode(err, cerr.Internal))
}
