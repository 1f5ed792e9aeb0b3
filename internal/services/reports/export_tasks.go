package reports

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Export task states.
const (
	ExportStatusRunning = "running"
	ExportStatusSuccess = "success"
	ExportStatusFailed  = "failed"
)

// ExportTask tracks one asynchronous CSV export.
type ExportTask struct {
	TaskID     string     `json:"taskId"`
	CreatedBy  string     `json:"createdBy"`
	Filter     Filter     `json:"filter"`
	Status     string     `json:"status"`
	Rows       int        `json:"rows"`
	BlobKey    string     `json:"blobKey,omitempty"`
	LastError  string     `json:"lastError,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// exportTaskStore keeps export tasks in memory. Finished tasks expire after ttl and the
// oldest finished tasks are evicted beyond maxTasks; running tasks are never evicted.
type exportTaskStore struct {
	mu       sync.Mutex
	tasks    map[string]*ExportTask
	order    []string
	ttl      time.Duration
	maxTasks int
	nextID   uint64
	now      func() time.Time
	// blob keys of dropped tasks, drained by CleanupExpired
	orphaned []string
}

func newExportTaskStore(ttl time.Duration, maxTasks int) *exportTaskStore {
	return &exportTaskStore{
		tasks:    make(map[string]*ExportTask),
		order:    make([]string, 0),
		ttl:      ttl,
		maxTasks: maxTasks,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *exportTaskStore) Create(createdBy string, filter Filter) ExportTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nextID++
	taskID := fmt.Sprintf("reports-export-%d-%d", now.UnixNano(), s.nextID)
	task := &ExportTask{
		TaskID:    taskID,
		CreatedBy: strings.TrimSpace(createdBy),
		Filter:    filter,
		Status:    ExportStatusRunning,
		CreatedAt: now,
	}
	s.tasks[taskID] = task
	s.order = append(s.order, taskID)
	s.cleanupExpiredLocked(now)
	s.enforceMaxTasksLocked()

	return cloneExportTask(task)
}

func (s *exportTaskStore) Get(taskID string) (ExportTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked(s.now())
	s.enforceMaxTasksLocked()

	task, ok := s.tasks[taskID]
	if !ok {
		return ExportTask{}, false
	}
	return cloneExportTask(task), true
}

// Finish records the outcome. A non-empty errMsg marks the task failed.
func (s *exportTaskStore) Finish(taskID string, rows int, blobKey, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok || task.FinishedAt != nil {
		return false
	}
	finishedAt := s.now()
	task.FinishedAt = &finishedAt
	task.Rows = rows
	if errMsg = strings.TrimSpace(errMsg); errMsg != "" {
		task.Status = ExportStatusFailed
		task.LastError = errMsg
	} else {
		task.Status = ExportStatusSuccess
		task.BlobKey = blobKey
	}
	s.cleanupExpiredLocked(finishedAt)
	s.enforceMaxTasksLocked()
	return true
}

// CleanupExpired drops expired tasks and returns the blob keys of every task dropped
// since the previous call, including those evicted by Create, Get or Finish.
func (s *exportTaskStore) CleanupExpired() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked(s.now())
	s.enforceMaxTasksLocked()

	dropped := s.orphaned
	s.orphaned = nil
	return dropped
}

// requeue returns blob keys whose deletion failed so the next cleanup retries them.
func (s *exportTaskStore) requeue(keys []string) {
	if len(keys) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orphaned = append(s.orphaned, keys...)
}

func (s *exportTaskStore) dropLocked(taskID string) {
	if task, ok := s.tasks[taskID]; ok && task.BlobKey != "" {
		s.orphaned = append(s.orphaned, task.BlobKey)
	}
	delete(s.tasks, taskID)
}

func (s *exportTaskStore) cleanupExpiredLocked(now time.Time) {
	if s.ttl <= 0 || len(s.order) == 0 {
		return
	}
	kept := make([]string, 0, len(s.order))
	for _, taskID := range s.order {
		task, ok := s.tasks[taskID]
		if !ok {
			continue
		}
		if task.FinishedAt != nil && now.Sub(*task.FinishedAt) >= s.ttl {
			s.dropLocked(taskID)
			continue
		}
		kept = append(kept, taskID)
	}
	s.order = kept
}

func (s *exportTaskStore) enforceMaxTasksLocked() {
	if s.maxTasks <= 0 {
		return
	}
	for len(s.tasks) > s.maxTasks {
		index := s.oldestFinishedIndexLocked()
		if index < 0 {
			return
		}
		s.dropLocked(s.order[index])
		s.order = append(s.order[:index], s.order[index+1:]...)
	}
}

func (s *exportTaskStore) oldestFinishedIndexLocked() int {
	for i, taskID := range s.order {
		if task, ok := s.tasks[taskID]; ok && task.FinishedAt != nil {
			return i
		}
	}
	return -1
}

func cloneExportTask(src *ExportTask) ExportTask {
	if src == nil {
		return ExportTask{}
	}
	cloned := *src
	if src.FinishedAt != nil {
		finishedAt := *src.FinishedAt
		cloned.FinishedAt = &finishedAt
	}
	return cloned
}
