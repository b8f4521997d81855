package journal

import (
	"path/filepath"
	"testing"
	"time"

	"breathplat/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordsControllerEvents(t *testing.T) {
	j := openTemp(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, j.StartSession("s-1", "wizard", 7, start))

	ctl, err := workflow.NewController(workflow.DefaultSteps(),
		workflow.WithObserver(j.Observer("s-1")),
		workflow.WithClock(func() time.Time { return start }),
	)
	require.NoError(t, err)

	ctl.CompleteStep(0, workflow.ImportResult{Files: []workflow.FileRef{{Name: "a.csv", Handle: "h1"}}})
	ctl.SkipStep()
	ctl.GoToStep(3) // locked, not journaled
	ctl.GoBack()

	events, err := j.Events("s-1")
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, workflow.EventCompleted, events[0].Kind)
	assert.Equal(t, workflow.KeyImport, events[0].StepKey)
	assert.Equal(t, "import", events[0].ResultKind)
	assert.JSONEq(t, `{"files":[{"name":"a.csv","handle":"h1"}]}`, string(events[0].Payload))
	assert.True(t, start.Equal(events[0].At))

	assert.Equal(t, workflow.EventSkipped, events[1].Kind)
	assert.Nil(t, events[1].Payload)
	assert.Equal(t, workflow.EventBack, events[2].Kind)
	assert.Equal(t, 2, events[2].From)
	assert.Equal(t, 1, events[2].To)
	assert.Less(t, events[0].Seq, events[1].Seq)
}

func TestJournal_Sessions(t *testing.T) {
	j := openTemp(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, j.StartSession("old", "run", 7, base))
	require.NoError(t, j.StartSession("new", "wizard", 7, base.Add(time.Hour)))
	require.NoError(t, j.Record("new", workflow.Event{Kind: workflow.EventSkipped, StepKey: workflow.KeyImport, To: 1}))

	sessions, err := j.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, 1, sessions[0].Events)
	assert.Equal(t, "run", sessions[1].Mode)
	assert.Equal(t, 0, sessions[1].Events)

	assert.Error(t, j.StartSession("new", "wizard", 7, base), "duplicate id")

	none, err := j.Events("missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJournal_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.StartSession("s", "run", 1, time.Now()))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	assert.Equal(t, path, j.Path())
	sessions, err := j.Sessions(10)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
