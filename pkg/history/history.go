package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MY-Final/napcat-plugin-email/pkg/metrics"
)

// SendType classifies how a send attempt was initiated.
type SendType string

const (
	SendScheduled SendType = "scheduled"
	SendManual    SendType = "manual"
	SendTest      SendType = "test"
)

// Status is the outcome of a send attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// AttachmentMeta keeps filename and content type only; no binary payload is
// retained in history.
type AttachmentMeta struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// Record is one immutable send attempt. Records are only ever created and
// deleted, never updated.
type Record struct {
	ID               string           `json:"id"`
	SendType         SendType         `json:"sendType"`
	AccountID        string           `json:"accountId,omitempty"`
	To               string           `json:"to"`
	Subject          string           `json:"subject"`
	Text             string           `json:"text,omitempty"`
	HTML             string           `json:"html,omitempty"`
	Status           Status           `json:"status"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
	SentAt           time.Time        `json:"sentAt"`
	ScheduledEmailID string           `json:"scheduledEmailId,omitempty"`
	AttachmentCount  int              `json:"attachmentCount"`
	Attachments      []AttachmentMeta `json:"attachments,omitempty"`
}

// AddParams are the caller-supplied fields of a new record; id and sentAt
// are assigned by the log.
type AddParams struct {
	SendType         SendType
	AccountID        string
	To               string
	Subject          string
	Text             string
	HTML             string
	Status           Status
	ErrorMessage     string
	ScheduledEmailID string
	Attachments      []AttachmentMeta
}

// QueryParams select and paginate records. Zero SendType/Status means no
// filter. Page starts at 1.
type QueryParams struct {
	Page     int
	PageSize int
	SendType SendType
	Status   Status
}

// QueryResult is one page of records plus the filtered total.
type QueryResult struct {
	Records  []Record `json:"records"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}

// Stats aggregates record counts by outcome and send type.
type Stats struct {
	Total     int `json:"total"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Scheduled int `json:"scheduled"`
	Manual    int `json:"manual"`
	Test      int `json:"test"`
}

// maxRecords caps the retained history; the oldest records are dropped
// first.
const maxRecords = 1000

const fileName = "history.json"

// Log is the durable, best-effort send history. All reads are served from
// the in-memory mirror; every mutation is persisted synchronously but
// persistence failures only log, they never block a send.
type Log struct {
	mu      sync.RWMutex
	path    string
	records []Record
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewLog opens (or creates) the history log in dataDir. A missing or
// corrupt file degrades to an empty history.
func NewLog(dataDir string, logger *zap.SugaredLogger) *Log {
	l := &Log{
		path: filepath.Join(dataDir, fileName),
		log:  logger.Named("history"),
		now:  time.Now,
	}
	l.records = l.load()
	return l
}

func (l *Log) load() []Record {
	content, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.log.Warnw("Failed to read history file, starting empty", "path", l.path, "error", err)
		}
		return nil
	}
	var records []Record
	if err := json.Unmarshal(content, &records); err != nil {
		l.log.Warnw("History file is corrupt, starting empty", "path", l.path, "error", err)
		return nil
	}
	return records
}

// persist writes the mirror to disk. Callers must hold the write lock.
func (l *Log) persist() {
	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		l.log.Errorw("Failed to marshal history", "error", err)
		return
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		l.log.Errorw("Failed to write history file", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, l.path); err != nil {
		l.log.Errorw("Failed to replace history file", "path", l.path, "error", err)
	}
}

// Add records one send attempt. The new record is prepended (newest first)
// and the log is truncated to the retention cap.
func (l *Log) Add(p AddParams) Record {
	rec := Record{
		ID:               uuid.NewString(),
		SendType:         p.SendType,
		AccountID:        p.AccountID,
		To:               p.To,
		Subject:          p.Subject,
		Text:             p.Text,
		HTML:             p.HTML,
		Status:           p.Status,
		ErrorMessage:     p.ErrorMessage,
		SentAt:           l.now(),
		ScheduledEmailID: p.ScheduledEmailID,
		AttachmentCount:  len(p.Attachments),
		Attachments:      p.Attachments,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append([]Record{rec}, l.records...)
	if len(l.records) > maxRecords {
		metrics.HistoryDropped.Add(float64(len(l.records) - maxRecords))
		l.records = l.records[:maxRecords]
	}
	l.persist()

	metrics.HistoryRecorded.WithLabelValues(string(p.SendType), string(p.Status)).Inc()
	return rec
}

// Query filters then paginates over the in-memory mirror.
func (l *Log) Query(p QueryParams) QueryResult {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	filtered := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		if p.SendType != "" && r.SendType != p.SendType {
			continue
		}
		if p.Status != "" && r.Status != p.Status {
			continue
		}
		filtered = append(filtered, r)
	}

	start := (p.Page - 1) * p.PageSize
	end := start + p.PageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	page := make([]Record, end-start)
	copy(page, filtered[start:end])

	return QueryResult{
		Records:  page,
		Total:    len(filtered),
		Page:     p.Page,
		PageSize: p.PageSize,
	}
}

// Stats aggregates over all retained records.
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return aggregate(l.records, nil)
}

// TodayStats aggregates over records sent today, by local calendar day.
func (l *Log) TodayStats() Stats {
	today := l.now().Local().Format("2006-01-02")
	l.mu.RLock()
	defer l.mu.RUnlock()
	return aggregate(l.records, func(r Record) bool {
		return r.SentAt.Local().Format("2006-01-02") == today
	})
}

func aggregate(records []Record, keep func(Record) bool) Stats {
	var s Stats
	for _, r := range records {
		if keep != nil && !keep(r) {
			continue
		}
		s.Total++
		switch r.Status {
		case StatusSuccess:
			s.Success++
		case StatusFailed:
			s.Failed++
		}
		switch r.SendType {
		case SendScheduled:
			s.Scheduled++
		case SendManual:
			s.Manual++
		case SendTest:
			s.Test++
		}
	}
	return s
}

// Delete removes one record by id.
func (l *Log) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, r := range l.records {
		if r.ID == id {
			l.records = append(l.records[:i], l.records[i+1:]...)
			l.persist()
			return true
		}
	}
	return false
}

// Clear drops all records.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	l.persist()
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
