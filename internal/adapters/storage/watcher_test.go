package storage

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusplan/core/internal/application/notify"
	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/logger"
)

func TestShouldRelay(t *testing.T) {
	tests := []struct {
		name     string
		selfID   string
		writerID string
		key      string
		want     bool
	}{
		{"foreign write to collection key", "proc-a", "proc-b", "eng_app_tasks", true},
		{"own write suppressed", "proc-a", "proc-a", "eng_app_tasks", false},
		{"missing writer id suppressed", "proc-a", "", "eng_app_tasks", false},
		{"unknown key suppressed", "proc-a", "proc-b", "eng_app_bogus", false},
		{"unprefixed key suppressed", "proc-a", "proc-b", "tasks", false},
		{"foreign settings write relayed", "proc-a", "proc-b", "eng_app_settings", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRelay(tt.selfID, tt.writerID, tt.key))
		})
	}
}

func TestWatcherRelaysForeignWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.db")

	ours, err := NewSQLiteMedium(path, "proc-a")
	require.NoError(t, err)
	defer ours.Close()

	// A second handle on the same file stands in for another process.
	theirs, err := NewSQLiteMedium(path, "proc-b")
	require.NoError(t, err)
	defer theirs.Close()

	notifier := notify.New()
	var fired atomic.Int64
	notifier.Subscribe(func() { fired.Add(1) })

	w, err := NewWatcher(path, ours, notifier, "proc-a", logger.NewNop())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, theirs.Set(entities.CollectionTasks.Key(), `[{"text":"from another process"}]`))

	require.Eventually(t, func() bool { return fired.Load() > 0 },
		2*time.Second, 10*time.Millisecond, "foreign write should reach the notifier")
}

func TestWatcherIgnoresOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.db")

	medium, err := NewSQLiteMedium(path, "proc-a")
	require.NoError(t, err)
	defer medium.Close()

	notifier := notify.New()
	var fired atomic.Int64
	notifier.Subscribe(func() { fired.Add(1) })

	w, err := NewWatcher(path, medium, notifier, "proc-a", logger.NewNop())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, medium.Set(entities.CollectionTasks.Key(), `[]`))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int64(0), fired.Load(), "writer never reacts to its own write")
}
