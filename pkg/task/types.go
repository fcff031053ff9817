package task

import (
	"time"

	"github.com/MY-Final/napcat-plugin-email/pkg/mail"
)

// ScheduleType is the recurrence variant of a task.
type ScheduleType string

const (
	ScheduleOnce     ScheduleType = "once"
	ScheduleDaily    ScheduleType = "daily"
	ScheduleWeekly   ScheduleType = "weekly"
	ScheduleMonthly  ScheduleType = "monthly"
	ScheduleInterval ScheduleType = "interval"
)

// Status is the lifecycle state of a task.
//
//	pending --(success, recurring, under cap)--> pending (scheduledAt advanced)
//	pending --(success, once or cap reached)---> sent       terminal
//	pending --(failure)-------------------------> failed    revivable only via explicit update
//	pending --(cancel)--------------------------> cancelled terminal
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ScheduledTask is one scheduled-email job.
type ScheduledTask struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AccountID string `json:"accountId,omitempty"`

	To          string            `json:"to"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Attachments []mail.Attachment `json:"attachments,omitempty"`

	ScheduleType ScheduleType `json:"scheduleType"`
	// ScheduledAt is the next (or only) due execution. For recurring
	// types it is only ever advanced forward.
	ScheduledAt time.Time `json:"scheduledAt"`

	IntervalMinutes int  `json:"intervalMinutes,omitempty"`
	Weekday         *int `json:"weekday,omitempty"` // 0 = Sunday
	DayOfMonth      int  `json:"dayOfMonth,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`

	LastSentAt   *time.Time `json:"lastSentAt,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	SendCount    int        `json:"sendCount"`
	// MaxSendCount, when set, finalizes the task to sent once SendCount
	// reaches it, regardless of recurrence type.
	MaxSendCount *int `json:"maxSendCount,omitempty"`
}

// Due reports whether the task should execute at the given time.
func (t ScheduledTask) Due(now time.Time) bool {
	return t.Status == StatusPending && !now.Before(t.ScheduledAt)
}
