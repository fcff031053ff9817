package task

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const storeFileName = "tasks.json"

// Store is the durable JSON-file-backed task collection. Every List
// re-reads the file so concurrent writers within the process always see the
// latest persisted state; there is no cross-process coordination
// (single-writer assumption).
type Store struct {
	path string
	log  *zap.SugaredLogger
}

// NewStore creates a task store in dataDir.
func NewStore(dataDir string, logger *zap.SugaredLogger) *Store {
	return &Store{
		path: filepath.Join(dataDir, storeFileName),
		log:  logger.Named("task-store"),
	}
}

// List returns all tasks. A missing or corrupt file degrades to an empty
// collection.
func (s *Store) List() []ScheduledTask {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnw("Failed to read task file, returning empty list", "path", s.path, "error", err)
		}
		return nil
	}
	var tasks []ScheduledTask
	if err := json.Unmarshal(content, &tasks); err != nil {
		s.log.Warnw("Task file is corrupt, returning empty list", "path", s.path, "error", err)
		return nil
	}
	return tasks
}

// GetByID returns the task with the given id.
func (s *Store) GetByID(id string) (ScheduledTask, bool) {
	for _, t := range s.List() {
		if t.ID == id {
			return t, true
		}
	}
	return ScheduledTask{}, false
}

// Save atomically overwrites the full collection via temp file + rename.
func (s *Store) Save(tasks []ScheduledTask) error {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
