package task

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MY-Final/napcat-plugin-email/pkg/history"
	"github.com/MY-Final/napcat-plugin-email/pkg/mail"
	"github.com/MY-Final/napcat-plugin-email/pkg/system"
)

type fakeMailer struct {
	mu       sync.Mutex
	requests []mail.SendRequest
	fail     bool
	failMsg  string
}

func (f *fakeMailer) Send(req mail.SendRequest) mail.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.fail {
		return mail.Result{Success: false, Message: f.failMsg}
	}
	return mail.Result{Success: true, Message: "mail sent"}
}

func (f *fakeMailer) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestManager(t *testing.T) (*Manager, *fakeMailer, *history.Log) {
	t.Helper()
	log := system.NewTestLogger()
	dir := t.TempDir()
	store := NewStore(dir, log)
	hist := history.NewLog(dir, log)
	mailer := &fakeMailer{failMsg: "SMTP connection failed: dial tcp: refused"}
	return NewManager(store, mailer, hist, log), mailer, hist
}

func futureParams() CreateParams {
	return CreateParams{
		Name:         "reminder",
		To:           "a@b.com",
		Subject:      "S",
		Text:         "T",
		ScheduleType: ScheduleOnce,
		ScheduledAt:  time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	}
}

func TestManager_Create(t *testing.T) {
	m, _, _ := newTestManager(t)

	created, err := m.Create(futureParams())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, StatusPending, created.Status)
	assert.Zero(t, created.SendCount)
	assert.False(t, created.CreatedAt.IsZero())

	stored, ok := m.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "reminder", stored.Name)
}

func TestManager_CreateRejectsInvalidParams(t *testing.T) {
	m, _, _ := newTestManager(t)

	p := futureParams()
	p.ScheduledAt = time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	_, err := m.Create(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be in the future")
	assert.Empty(t, m.List())
}

func TestManager_UpdateMergesOnlyProvidedFields(t *testing.T) {
	m, _, _ := newTestManager(t)
	created, err := m.Create(futureParams())
	require.NoError(t, err)

	name := "renamed"
	updated, err := m.Update(created.ID, UpdateParams{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, created.To, updated.To)
	assert.Equal(t, created.Subject, updated.Subject)
	assert.True(t, updated.ScheduledAt.Equal(created.ScheduledAt))
}

func TestManager_UpdateNotFound(t *testing.T) {
	m, _, _ := newTestManager(t)
	name := "x"
	_, err := m.Update("missing", UpdateParams{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_UpdateScheduleTypeKeepsStaleFields(t *testing.T) {
	m, _, _ := newTestManager(t)
	p := futureParams()
	p.ScheduleType = ScheduleInterval
	p.IntervalMinutes = 5
	created, err := m.Create(p)
	require.NoError(t, err)

	st := ScheduleDaily
	updated, err := m.Update(created.ID, UpdateParams{ScheduleType: &st})
	require.NoError(t, err)
	assert.Equal(t, ScheduleDaily, updated.ScheduleType)
	// Stale interval setting stays around, ignored until re-used.
	assert.Equal(t, 5, updated.IntervalMinutes)
}

func TestManager_UpdateStatusTransitions(t *testing.T) {
	m, mailer, _ := newTestManager(t)
	mailer.fail = true

	created, err := m.Create(futureParams())
	require.NoError(t, err)

	res := m.Execute(created)
	require.False(t, res.Success)
	failed, _ := m.Get(created.ID)
	require.Equal(t, StatusFailed, failed.Status)

	// Administrative revive: failed -> pending clears the error.
	pending := StatusPending
	revived, err := m.Update(created.ID, UpdateParams{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, revived.Status)
	assert.Empty(t, revived.ErrorMessage)

	// sent is terminal.
	mailer.fail = false
	res = m.Execute(revived)
	require.True(t, res.Success)
	sent, _ := m.Get(created.ID)
	require.Equal(t, StatusSent, sent.Status)
	_, err = m.Update(created.ID, UpdateParams{Status: &pending})
	assert.Error(t, err)
}

func TestManager_DeleteRegardlessOfStatus(t *testing.T) {
	m, _, _ := newTestManager(t)
	created, err := m.Create(futureParams())
	require.NoError(t, err)

	require.True(t, m.Cancel(created.ID))
	assert.True(t, m.Delete(created.ID))
	assert.False(t, m.Delete(created.ID))
	assert.Empty(t, m.List())
}

func TestManager_CancelIsTerminal(t *testing.T) {
	m, _, _ := newTestManager(t)
	created, err := m.Create(futureParams())
	require.NoError(t, err)

	require.True(t, m.Cancel(created.ID))
	got, _ := m.Get(created.ID)
	assert.Equal(t, StatusCancelled, got.Status)

	// cancelled cannot be revived through update.
	pending := StatusPending
	_, err = m.Update(created.ID, UpdateParams{Status: &pending})
	assert.Error(t, err)

	assert.False(t, m.Cancel("missing"))
}

func TestManager_ExecuteSuccessOnceFinalizes(t *testing.T) {
	m, mailer, hist := newTestManager(t)
	created, err := m.Create(futureParams())
	require.NoError(t, err)

	res := m.Execute(created)
	require.True(t, res.Success)
	assert.Equal(t, 1, mailer.sent())

	got, _ := m.Get(created.ID)
	assert.Equal(t, StatusSent, got.Status)
	assert.Equal(t, 1, got.SendCount)
	require.NotNil(t, got.LastSentAt)
	assert.Empty(t, got.ErrorMessage)

	// Exactly one scheduled history record.
	q := hist.Query(history.QueryParams{Page: 1, PageSize: 10, SendType: history.SendScheduled})
	require.Equal(t, 1, q.Total)
	assert.Equal(t, created.ID, q.Records[0].ScheduledEmailID)
	assert.Equal(t, history.StatusSuccess, q.Records[0].Status)
}

func TestManager_ExecuteFailureParksTask(t *testing.T) {
	m, mailer, hist := newTestManager(t)
	mailer.fail = true

	created, err := m.Create(futureParams())
	require.NoError(t, err)

	res := m.Execute(created)
	require.False(t, res.Success)

	got, _ := m.Get(created.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, mailer.failMsg, got.ErrorMessage)
	assert.Zero(t, got.SendCount)
	assert.Nil(t, got.LastSentAt)

	q := hist.Query(history.QueryParams{Page: 1, PageSize: 10})
	require.Equal(t, 1, q.Total)
	assert.Equal(t, history.StatusFailed, q.Records[0].Status)
	assert.Equal(t, mailer.failMsg, q.Records[0].ErrorMessage)
}

func TestManager_ExecuteRecurringReschedules(t *testing.T) {
	m, _, _ := newTestManager(t)
	p := futureParams()
	p.ScheduleType = ScheduleDaily
	created, err := m.Create(p)
	require.NoError(t, err)

	res := m.Execute(created)
	require.True(t, res.Success)

	got, _ := m.Get(created.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 1, got.SendCount)
	assert.True(t, got.ScheduledAt.Equal(created.ScheduledAt.AddDate(0, 0, 1)))
}

func TestManager_IntervalAnchorsToExecutionTime(t *testing.T) {
	m, _, _ := newTestManager(t)
	p := futureParams()
	p.ScheduleType = ScheduleInterval
	p.IntervalMinutes = 5
	created, err := m.Create(p)
	require.NoError(t, err)

	// Simulate a late execution: 12 minutes after the scheduled time.
	execTime := created.ScheduledAt.Add(12 * time.Minute)
	m.now = func() time.Time { return execTime }

	res := m.Execute(created)
	require.True(t, res.Success)

	got, _ := m.Get(created.ID)
	assert.True(t, got.ScheduledAt.Equal(execTime.Add(5*time.Minute)),
		"next run must be execution time + interval, not old scheduledAt + interval")
}

func TestManager_MaxSendCountFinalizesExactlyAtCap(t *testing.T) {
	m, mailer, _ := newTestManager(t)
	p := futureParams()
	p.ScheduleType = ScheduleInterval
	p.IntervalMinutes = 1
	p.MaxSendCount = intPtr(3)
	created, err := m.Create(p)
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		cur, _ := m.Get(created.ID)
		res := m.Execute(cur)
		require.True(t, res.Success)
		got, _ := m.Get(created.ID)
		assert.Equal(t, StatusPending, got.Status, "send %d keeps the task pending", i)
		assert.Equal(t, i, got.SendCount)
	}

	cur, _ := m.Get(created.ID)
	res := m.Execute(cur)
	require.True(t, res.Success)
	got, _ := m.Get(created.ID)
	assert.Equal(t, StatusSent, got.Status, "task finalizes exactly at the cap")
	assert.Equal(t, 3, got.SendCount)
	assert.Equal(t, 3, mailer.sent())

	// A fourth trigger is rejected.
	r := m.ExecuteNow(created.ID)
	assert.False(t, r.Success)
	assert.Equal(t, 3, mailer.sent())
}

func TestManager_ExecuteNow(t *testing.T) {
	m, mailer, _ := newTestManager(t)
	created, err := m.Create(futureParams())
	require.NoError(t, err)

	res := m.ExecuteNow(created.ID)
	assert.True(t, res.Success)
	assert.Equal(t, 1, mailer.sent())

	res = m.ExecuteNow("missing")
	assert.False(t, res.Success)
	assert.Equal(t, "task not found", res.Message)
}

func TestManager_ExecuteNowRejectsCancelled(t *testing.T) {
	m, mailer, _ := newTestManager(t)
	created, err := m.Create(futureParams())
	require.NoError(t, err)
	require.True(t, m.Cancel(created.ID))

	res := m.ExecuteNow(created.ID)
	assert.False(t, res.Success)
	assert.Zero(t, mailer.sent())
}

func TestManager_ExecuteNowRetriggersFailed(t *testing.T) {
	m, mailer, _ := newTestManager(t)
	mailer.fail = true
	created, err := m.Create(futureParams())
	require.NoError(t, err)

	require.False(t, m.Execute(created).Success)

	// Manual re-trigger is the only retry path for failed tasks.
	mailer.fail = false
	res := m.ExecuteNow(created.ID)
	require.True(t, res.Success)
	got, _ := m.Get(created.ID)
	assert.Equal(t, StatusSent, got.Status)
}
