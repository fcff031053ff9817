package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/MY-Final/napcat-plugin-email/pkg/mail"
)

// CreateParams are the caller-supplied fields of a new task. ScheduledAt is
// an RFC 3339 timestamp string.
type CreateParams struct {
	Name      string `json:"name"`
	AccountID string `json:"accountId,omitempty"`

	To          string            `json:"to"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Attachments []mail.Attachment `json:"attachments,omitempty"`

	ScheduleType    ScheduleType `json:"scheduleType"`
	ScheduledAt     string       `json:"scheduledAt"`
	IntervalMinutes int          `json:"intervalMinutes,omitempty"`
	Weekday         *int         `json:"weekday,omitempty"`
	DayOfMonth      int          `json:"dayOfMonth,omitempty"`
	MaxSendCount    *int         `json:"maxSendCount,omitempty"`
}

// UpdateParams carry a partial task update; nil fields are left untouched.
// Changing ScheduleType without clearing type-specific fields is permitted;
// stale fields are simply ignored until re-used.
type UpdateParams struct {
	Name      *string `json:"name,omitempty"`
	AccountID *string `json:"accountId,omitempty"`

	To          *string            `json:"to,omitempty"`
	Subject     *string            `json:"subject,omitempty"`
	Text        *string            `json:"text,omitempty"`
	HTML        *string            `json:"html,omitempty"`
	Attachments *[]mail.Attachment `json:"attachments,omitempty"`

	ScheduleType    *ScheduleType `json:"scheduleType,omitempty"`
	ScheduledAt     *string       `json:"scheduledAt,omitempty"`
	IntervalMinutes *int          `json:"intervalMinutes,omitempty"`
	Weekday         *int          `json:"weekday,omitempty"`
	DayOfMonth      *int          `json:"dayOfMonth,omitempty"`
	MaxSendCount    *int          `json:"maxSendCount,omitempty"`

	// Status permits the administrative override of reviving a failed
	// task back to pending. No other transition is accepted.
	Status *Status `json:"status,omitempty"`
}

var scheduleTypes = map[ScheduleType]bool{
	ScheduleOnce:     true,
	ScheduleDaily:    true,
	ScheduleWeekly:   true,
	ScheduleMonthly:  true,
	ScheduleInterval: true,
}

// Validate checks the params against the task rules and returns the parsed
// scheduledAt timestamp.
func (p CreateParams) Validate(now time.Time) (time.Time, error) {
	if strings.TrimSpace(p.Name) == "" {
		return time.Time{}, fmt.Errorf("name must not be empty")
	}
	if strings.TrimSpace(p.Subject) == "" {
		return time.Time{}, fmt.Errorf("subject must not be empty")
	}
	recipients := mail.SplitRecipients(p.To)
	if len(recipients) == 0 {
		return time.Time{}, fmt.Errorf("to must not be empty")
	}
	for _, r := range recipients {
		if !strings.Contains(r, "@") {
			return time.Time{}, fmt.Errorf("invalid recipient address: %s", r)
		}
	}
	if p.Text == "" && p.HTML == "" {
		return time.Time{}, fmt.Errorf("either text or html body is required")
	}

	if !scheduleTypes[p.ScheduleType] {
		return time.Time{}, fmt.Errorf("unknown schedule type: %s", p.ScheduleType)
	}

	scheduledAt, err := time.Parse(time.RFC3339, p.ScheduledAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduledAt is not a valid timestamp: %v", err)
	}

	switch p.ScheduleType {
	case ScheduleOnce:
		if !scheduledAt.After(now) {
			return time.Time{}, fmt.Errorf("scheduledAt must be in the future for a one-time task")
		}
	case ScheduleInterval:
		if p.IntervalMinutes <= 0 {
			return time.Time{}, fmt.Errorf("intervalMinutes must be greater than zero")
		}
	case ScheduleWeekly:
		if p.Weekday == nil || *p.Weekday < 0 || *p.Weekday > 6 {
			return time.Time{}, fmt.Errorf("weekday must be between 0 (Sunday) and 6")
		}
	case ScheduleMonthly:
		if p.DayOfMonth < 1 || p.DayOfMonth > 31 {
			return time.Time{}, fmt.Errorf("dayOfMonth must be between 1 and 31")
		}
	}

	if p.MaxSendCount != nil && *p.MaxSendCount <= 0 {
		return time.Time{}, fmt.Errorf("maxSendCount must be greater than zero")
	}

	return scheduledAt, nil
}
