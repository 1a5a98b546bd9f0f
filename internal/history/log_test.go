package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/strategy-sync/internal/model"
)

func fieldEvent(t *testing.T, old, new string) model.ChangeEvent {
	t.Helper()
	ev, err := model.NewChangeEvent("sess-1", model.SourceBuilder, model.OpSetField, []string{"name"}, old, new)
	require.NoError(t, err)
	return *ev
}

func TestEventLogPushUndoRedo(t *testing.T) {
	log := NewEventLog(0)
	assert.False(t, log.CanUndo())
	assert.False(t, log.CanRedo())

	e1 := fieldEvent(t, "A", "B")
	log.Push(e1)

	undone, err := log.Undo()
	require.NoError(t, err)
	assert.Equal(t, e1.ID, undone.ID)
	assert.False(t, log.CanUndo())
	assert.True(t, log.CanRedo())

	redone, err := log.Redo()
	require.NoError(t, err)
	assert.Equal(t, e1.ID, redone.ID)
	assert.True(t, log.CanUndo())
	assert.False(t, log.CanRedo())
}

func TestEventLogPushClearsRedo(t *testing.T) {
	log := NewEventLog(0)
	e1 := fieldEvent(t, "A", "B")
	e2 := fieldEvent(t, "B", "C")

	log.Push(e1)
	_, err := log.Undo()
	require.NoError(t, err)
	require.True(t, log.CanRedo())

	log.Push(e2)

	assert.False(t, log.CanRedo())
	undoDepth, redoDepth := log.Depths()
	assert.Equal(t, 1, undoDepth)
	assert.Equal(t, 0, redoDepth)

	undone, err := log.Undo()
	require.NoError(t, err)
	assert.Equal(t, e2.ID, undone.ID)
}

func TestEventLogEmptyStacks(t *testing.T) {
	log := NewEventLog(0)

	_, err := log.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, err = log.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestEventLogDropsOldestBeyondMaxDepth(t *testing.T) {
	log := NewEventLog(0)

	var events []model.ChangeEvent
	for i := 0; i < DefaultMaxDepth+1; i++ {
		ev := fieldEvent(t, fmt.Sprintf("v%d", i), fmt.Sprintf("v%d", i+1))
		events = append(events, ev)
		log.Push(ev)
	}

	undoDepth, _ := log.Depths()
	assert.Equal(t, DefaultMaxDepth, undoDepth)

	// Drain: the newest event comes first, the very first push is gone.
	var drained []string
	for log.CanUndo() {
		ev, err := log.Undo()
		require.NoError(t, err)
		drained = append(drained, ev.ID)
	}
	require.Len(t, drained, DefaultMaxDepth)
	assert.Equal(t, events[len(events)-1].ID, drained[0])
	assert.NotContains(t, drained, events[0].ID)
}

func TestEventLogSnapshotRestore(t *testing.T) {
	log := NewEventLog(5)
	e1 := fieldEvent(t, "A", "B")
	e2 := fieldEvent(t, "B", "C")
	log.Push(e1)
	log.Push(e2)
	_, err := log.Undo()
	require.NoError(t, err)

	undo, redo := log.Snapshot()
	require.Len(t, undo, 1)
	require.Len(t, redo, 1)
	assert.Equal(t, e1.ID, undo[0].ID)
	assert.Equal(t, e2.ID, redo[0].ID)

	restored := NewEventLog(5)
	restored.Restore(undo, redo)
	assert.True(t, restored.CanUndo())
	assert.True(t, restored.CanRedo())

	redone, err := restored.Redo()
	require.NoError(t, err)
	assert.Equal(t, e2.ID, redone.ID)
}
