package task

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MY-Final/napcat-plugin-email/pkg/history"
	"github.com/MY-Final/napcat-plugin-email/pkg/mail"
)

// ErrNotFound is returned when an operation references an unknown task id.
var ErrNotFound = errors.New("task not found")

// MailSender delivers one message. *mail.Dispatcher implements it.
type MailSender interface {
	Send(req mail.SendRequest) mail.Result
}

// HistoryRecorder records one send attempt. *history.Log implements it.
type HistoryRecorder interface {
	Add(p history.AddParams) history.Record
}

// Manager owns the task lifecycle: create, update, delete, cancel and
// execute. It serializes read-modify-write cycles on the store; the
// scheduler and API both go through it.
type Manager struct {
	store   *Store
	mailer  MailSender
	history HistoryRecorder
	log     *zap.SugaredLogger

	mu  sync.Mutex
	now func() time.Time
}

// NewManager creates a task lifecycle manager.
func NewManager(store *Store, mailer MailSender, recorder HistoryRecorder, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		store:   store,
		mailer:  mailer,
		history: recorder,
		log:     logger.Named("task-manager"),
		now:     time.Now,
	}
}

// Create validates the params, assigns an id and persists the new pending
// task.
func (m *Manager) Create(p CreateParams) (ScheduledTask, error) {
	now := m.now()
	scheduledAt, err := p.Validate(now)
	if err != nil {
		return ScheduledTask{}, err
	}

	t := ScheduledTask{
		ID:              uuid.NewString(),
		Name:            p.Name,
		AccountID:       p.AccountID,
		To:              p.To,
		Subject:         p.Subject,
		Text:            p.Text,
		HTML:            p.HTML,
		Attachments:     p.Attachments,
		ScheduleType:    p.ScheduleType,
		ScheduledAt:     scheduledAt,
		IntervalMinutes: p.IntervalMinutes,
		Weekday:         p.Weekday,
		DayOfMonth:      p.DayOfMonth,
		Status:          StatusPending,
		CreatedAt:       now,
		SendCount:       0,
		MaxSendCount:    p.MaxSendCount,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := append(m.store.List(), t)
	if err := m.store.Save(tasks); err != nil {
		return ScheduledTask{}, fmt.Errorf("persisting task: %w", err)
	}

	m.log.Infow("Task created",
		"id", t.ID,
		"name", t.Name,
		"scheduleType", t.ScheduleType,
		"scheduledAt", t.ScheduledAt)
	return t, nil
}

// Update merges the provided fields into an existing task. Only supplied
// fields are touched; cross-field consistency beyond the supplied values is
// the caller's responsibility.
func (m *Manager) Update(id string, p UpdateParams) (ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := m.store.List()
	idx := indexOf(tasks, id)
	if idx < 0 {
		return ScheduledTask{}, ErrNotFound
	}
	t := &tasks[idx]

	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	if p.To != nil {
		t.To = *p.To
	}
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.HTML != nil {
		t.HTML = *p.HTML
	}
	if p.Attachments != nil {
		t.Attachments = *p.Attachments
	}
	if p.ScheduleType != nil {
		if !scheduleTypes[*p.ScheduleType] {
			return ScheduledTask{}, fmt.Errorf("unknown schedule type: %s", *p.ScheduleType)
		}
		t.ScheduleType = *p.ScheduleType
	}
	if p.ScheduledAt != nil {
		at, err := time.Parse(time.RFC3339, *p.ScheduledAt)
		if err != nil {
			return ScheduledTask{}, fmt.Errorf("scheduledAt is not a valid timestamp: %v", err)
		}
		t.ScheduledAt = at
	}
	if p.IntervalMinutes != nil {
		if *p.IntervalMinutes <= 0 {
			return ScheduledTask{}, fmt.Errorf("intervalMinutes must be greater than zero")
		}
		t.IntervalMinutes = *p.IntervalMinutes
	}
	if p.Weekday != nil {
		if *p.Weekday < 0 || *p.Weekday > 6 {
			return ScheduledTask{}, fmt.Errorf("weekday must be between 0 (Sunday) and 6")
		}
		t.Weekday = p.Weekday
	}
	if p.DayOfMonth != nil {
		if *p.DayOfMonth < 1 || *p.DayOfMonth > 31 {
			return ScheduledTask{}, fmt.Errorf("dayOfMonth must be between 1 and 31")
		}
		t.DayOfMonth = *p.DayOfMonth
	}
	if p.MaxSendCount != nil {
		if *p.MaxSendCount <= 0 {
			return ScheduledTask{}, fmt.Errorf("maxSendCount must be greater than zero")
		}
		t.MaxSendCount = p.MaxSendCount
	}
	if p.Status != nil {
		if err := checkStatusTransition(t.Status, *p.Status); err != nil {
			return ScheduledTask{}, err
		}
		t.Status = *p.Status
		if *p.Status == StatusPending {
			t.ErrorMessage = ""
		}
	}

	if err := m.store.Save(tasks); err != nil {
		return ScheduledTask{}, fmt.Errorf("persisting task: %w", err)
	}

	m.log.Infow("Task updated", "id", t.ID, "name", t.Name, "status", t.Status)
	return *t, nil
}

// checkStatusTransition allows exactly two explicit transitions: reviving a
// failed task back to pending, and cancelling a non-terminal task. sent and
// cancelled are terminal.
func checkStatusTransition(from, to Status) error {
	switch {
	case from == to:
		return nil
	case to == StatusPending && from == StatusFailed:
		return nil
	case to == StatusCancelled && (from == StatusPending || from == StatusFailed):
		return nil
	default:
		return fmt.Errorf("cannot change task status from %s to %s", from, to)
	}
}

// Delete removes a task permanently regardless of status.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := m.store.List()
	idx := indexOf(tasks, id)
	if idx < 0 {
		return false
	}
	tasks = append(tasks[:idx], tasks[idx+1:]...)
	if err := m.store.Save(tasks); err != nil {
		m.log.Errorw("Failed to persist task deletion", "id", id, "error", err)
		return false
	}
	m.log.Infow("Task deleted", "id", id)
	return true
}

// Cancel finalizes a task to cancelled. Terminal; irreversible through this
// API.
func (m *Manager) Cancel(id string) bool {
	cancelled := StatusCancelled
	_, err := m.Update(id, UpdateParams{Status: &cancelled})
	return err == nil
}

// List returns all tasks.
func (m *Manager) List() []ScheduledTask {
	return m.store.List()
}

// Get returns one task by id.
func (m *Manager) Get(id string) (ScheduledTask, bool) {
	return m.store.GetByID(id)
}

// ExecuteNow triggers a task immediately, outside its schedule. Permitted
// for pending tasks and as the manual re-trigger path for failed tasks.
func (m *Manager) ExecuteNow(id string) mail.Result {
	t, ok := m.store.GetByID(id)
	if !ok {
		return mail.Result{Success: false, Message: "task not found"}
	}
	if t.Status != StatusPending && t.Status != StatusFailed {
		return mail.Result{Success: false, Message: fmt.Sprintf("task is %s and cannot be executed", t.Status)}
	}
	return m.Execute(t)
}

// Execute sends the task's payload and applies the outcome to the task
// state machine. Every execution, success or failure, produces exactly one
// scheduled history record.
func (m *Manager) Execute(t ScheduledTask) mail.Result {
	res := m.mailer.Send(mail.SendRequest{
		AccountID:   t.AccountID,
		To:          t.To,
		Subject:     t.Subject,
		Text:        t.Text,
		HTML:        t.HTML,
		Attachments: t.Attachments,
	})

	m.recordOutcome(t, res)
	m.applyOutcome(t, res)
	return res
}

func (m *Manager) recordOutcome(t ScheduledTask, res mail.Result) {
	status := history.StatusSuccess
	errMsg := ""
	if !res.Success {
		status = history.StatusFailed
		errMsg = res.Message
	}
	attachments := make([]history.AttachmentMeta, 0, len(t.Attachments))
	for i, a := range t.Attachments {
		name := a.Filename
		if name == "" && a.Path != "" {
			name = a.Path
		}
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}
		ct := a.ContentType
		if ct == "" {
			ct = mail.ContentTypeByExtension(name)
		}
		attachments = append(attachments, history.AttachmentMeta{Filename: name, ContentType: ct})
	}
	m.history.Add(history.AddParams{
		SendType:         history.SendScheduled,
		AccountID:        t.AccountID,
		To:               t.To,
		Subject:          t.Subject,
		Text:             t.Text,
		HTML:             t.HTML,
		Status:           status,
		ErrorMessage:     errMsg,
		ScheduledEmailID: t.ID,
		Attachments:      attachments,
	})
}

// applyOutcome re-reads the stored task and applies the execution outcome:
// success advances or finalizes it, failure parks it as failed until an
// operator intervenes.
func (m *Manager) applyOutcome(t ScheduledTask, res mail.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := m.store.List()
	idx := indexOf(tasks, t.ID)
	if idx < 0 {
		// Deleted while the send was in flight; nothing to update.
		m.log.Debugw("Task vanished during execution", "id", t.ID)
		return
	}
	cur := &tasks[idx]
	now := m.now()

	if res.Success {
		cur.LastSentAt = &now
		cur.SendCount++
		cur.ErrorMessage = ""
		if cur.ScheduleType == ScheduleOnce || (cur.MaxSendCount != nil && cur.SendCount >= *cur.MaxSendCount) {
			cur.Status = StatusSent
			m.log.Infow("Task finalized",
				"id", cur.ID,
				"name", cur.Name,
				"sendCount", cur.SendCount)
		} else {
			cur.Status = StatusPending
			cur.ScheduledAt = NextRun(*cur, now)
			m.log.Infow("Task rescheduled",
				"id", cur.ID,
				"name", cur.Name,
				"sendCount", cur.SendCount,
				"nextRun", cur.ScheduledAt)
		}
	} else {
		cur.Status = StatusFailed
		cur.ErrorMessage = res.Message
		m.log.Warnw("Task execution failed",
			"id", cur.ID,
			"name", cur.Name,
			"error", res.Message)
	}

	if err := m.store.Save(tasks); err != nil {
		// In-memory and on-disk state diverge until the next successful
		// write; accepted risk.
		m.log.Errorw("Failed to persist execution outcome", "id", cur.ID, "error", err)
	}
}

func indexOf(tasks []ScheduledTask, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
