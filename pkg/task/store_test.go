package task

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MY-Final/napcat-plugin-email/pkg/system"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), system.NewTestLogger())
}

func TestStore_EmptyWhenFileMissing(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.List())
}

func TestStore_SaveAndList(t *testing.T) {
	s := newTestStore(t)
	tasks := []ScheduledTask{
		{
			ID:           "t1",
			Name:         "first",
			To:           "a@b.com",
			Subject:      "S",
			ScheduleType: ScheduleOnce,
			ScheduledAt:  time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
			Status:       StatusPending,
		},
		{
			ID:           "t2",
			Name:         "second",
			To:           "c@d.com",
			Subject:      "S2",
			ScheduleType: ScheduleInterval,
			Status:       StatusSent,
		},
	}

	require.NoError(t, s.Save(tasks))

	got := s.List()
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.True(t, got[0].ScheduledAt.Equal(tasks[0].ScheduledAt))

	t2, ok := s.GetByID("t2")
	require.True(t, ok)
	assert.Equal(t, StatusSent, t2.Status)

	_, ok = s.GetByID("missing")
	assert.False(t, ok)
}

func TestStore_SaveOverwritesCollection(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save([]ScheduledTask{{ID: "t1"}, {ID: "t2"}}))
	require.NoError(t, s.Save([]ScheduledTask{{ID: "t3"}}))

	got := s.List()
	require.Len(t, got, 1)
	assert.Equal(t, "t3", got[0].ID)
}

func TestStore_CorruptFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, system.NewTestLogger())
	require.NoError(t, os.WriteFile(filepath.Join(dir, storeFileName), []byte("{not json"), 0o644))

	assert.Empty(t, s.List())
}
