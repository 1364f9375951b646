package repository

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"openclaw-dashboard/internal/eventbus"
	"openclaw-dashboard/internal/model"
	"openclaw-dashboard/pkg/logger"
	"openclaw-dashboard/pkg/utils"
)

var (
	ErrExecutionNotFound = errors.New("execution not found")
	ErrAlreadyTerminal   = errors.New("execution is already in a terminal state")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const maxLogEntries = 200

// ExecutionRepository is the execution registry: the single source of truth
// for execution records. Every mutation happens under one lock and publishes
// its event before the lock is released, so events for a given execution are
// observed in mutation order.
type ExecutionRepository interface {
	Create(taskID string) *model.ExecutionRecord
	Get(id string) (*model.ExecutionRecord, bool)
	GetByTask(taskID string) (*model.ExecutionRecord, bool)
	ActiveExecutions() []*model.ExecutionRecord
	RunningCount() int

	// Transition atomically applies a status change. The mutate callback, if
	// non-nil, runs under the same lock after the status check, so a
	// check-then-write race with the other mutation path cannot occur.
	Transition(id string, to model.ExecutionStatus, mutate func(*model.ExecutionRecord)) error

	SetProgress(id string, progress int, message string, fromWebhook bool) error
	AppendLog(id string, logType model.LogType, message string, metadata map[string]interface{}) error
	MarkSubtaskComplete(id, subtaskID string) error

	Complete(id, summary string) error
	Fail(id, errMessage string) error
	Cancel(id, reason string) error

	PruneTerminal(keep int) int
}

type executionRepository struct {
	mu         sync.RWMutex
	log        *logger.Logger
	bus        eventbus.Bus
	executions map[string]*model.ExecutionRecord
	byTask     map[string]string // taskID -> latest executionID
}

func NewExecutionRepository(log *logger.Logger, bus eventbus.Bus) ExecutionRepository {
	return &executionRepository{
		log:        log,
		bus:        bus,
		executions: make(map[string]*model.ExecutionRecord),
		byTask:     make(map[string]string),
	}
}

func (r *executionRepository) Create(taskID string) *model.ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	rec := &model.ExecutionRecord{
		ID:        fmt.Sprintf("exec-%s", uuid.NewString()),
		TaskID:    taskID,
		Status:    model.StatusPending,
		StartedAt: now,
		UpdatedAt: now,
		Logs:      []model.LogEntry{},
		Result:    model.ExecutionResult{CompletedSubtasks: []string{}},
	}
	r.executions[rec.ID] = rec
	r.byTask[taskID] = rec.ID

	r.appendLogLocked(rec, model.LogSystem, "Execution created, waiting to start...", nil)
	r.publishLocked(rec, model.EventExecutionStarted, map[string]interface{}{
		"status": string(rec.Status),
	})

	return rec.Clone()
}

func (r *executionRepository) Get(id string) (*model.ExecutionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.executions[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (r *executionRepository) GetByTask(taskID string) (*model.ExecutionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byTask[taskID]
	if !ok {
		return nil, false
	}
	rec, ok := r.executions[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (r *executionRepository) ActiveExecutions() []*model.ExecutionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*model.ExecutionRecord
	for _, rec := range r.executions {
		if rec.Status.IsActive() {
			active = append(active, rec.Clone())
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].StartedAt.Before(active[j].StartedAt)
	})
	return active
}

func (r *executionRepository) RunningCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rec := range r.executions {
		if rec.Status == model.StatusRunning {
			count++
		}
	}
	return count
}

func (r *executionRepository) Transition(id string, to model.ExecutionStatus, mutate func(*model.ExecutionRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.transitionLocked(id, to, mutate)
}

func (r *executionRepository) transitionLocked(id string, to model.ExecutionStatus, mutate func(*model.ExecutionRecord)) error {
	rec, ok := r.executions[id]
	if !ok {
		return ErrExecutionNotFound
	}
	if rec.Status.IsTerminal() {
		r.log.Warn("Rejected transition on terminal execution",
			logger.StringField("execution_id", id),
			logger.StringField("current", string(rec.Status)),
			logger.StringField("requested", string(to)),
		)
		return ErrAlreadyTerminal
	}
	if !model.CanTransition(rec.Status, to) {
		r.log.Warn("Rejected invalid status transition",
			logger.StringField("execution_id", id),
			logger.StringField("from", string(rec.Status)),
			logger.StringField("to", string(to)),
		)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, to)
	}

	now := time.Now()
	rec.Status = to
	rec.UpdatedAt = now
	if to.IsTerminal() && rec.CompletedAt == nil {
		rec.CompletedAt = &now
	}
	if to == model.StatusCompleted {
		rec.Progress = 100
	}
	if mutate != nil {
		mutate(rec)
	}

	switch to {
	case model.StatusCompleted:
		r.publishLocked(rec, model.EventExecutionCompleted, map[string]interface{}{
			"summary":     rec.Result.Summary,
			"reviewNotes": rec.Result.ReviewNotes,
		})
	case model.StatusFailed:
		r.publishLocked(rec, model.EventExecutionFailed, map[string]interface{}{
			"error": rec.Error,
		})
	default:
		r.publishLocked(rec, model.EventStatusChanged, map[string]interface{}{
			"status": string(to),
		})
	}

	return nil
}

func (r *executionRepository) SetProgress(id string, progress int, message string, fromWebhook bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.executions[id]
	if !ok {
		return ErrExecutionNotFound
	}
	if rec.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	// Stdout scraping is a best-effort fallback; once the worker has reported
	// progress through the webhook, the fallback path stops writing.
	if !fromWebhook && rec.WebhookProgress {
		return nil
	}
	if fromWebhook {
		rec.WebhookProgress = true
	}

	rec.Progress = utils.Clamp(progress, 0, 100)
	rec.UpdatedAt = time.Now()
	if message != "" {
		rec.CurrentStep = message
		r.appendLogLocked(rec, model.LogProgress, message, nil)
	}

	r.publishLocked(rec, model.EventProgressUpdate, map[string]interface{}{
		"progress": rec.Progress,
		"message":  message,
	})
	return nil
}

func (r *executionRepository) AppendLog(id string, logType model.LogType, message string, metadata map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.executions[id]
	if !ok {
		return ErrExecutionNotFound
	}
	if rec.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	rec.UpdatedAt = time.Now()
	r.appendLogLocked(rec, logType, message, metadata)
	return nil
}

func (r *executionRepository) MarkSubtaskComplete(id, subtaskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.executions[id]
	if !ok {
		return ErrExecutionNotFound
	}
	if rec.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	if !rec.HasCompletedSubtask(subtaskID) {
		rec.Result.CompletedSubtasks = append(rec.Result.CompletedSubtasks, subtaskID)
	}
	rec.UpdatedAt = time.Now()

	r.appendLogLocked(rec, model.LogSubtask, fmt.Sprintf("Subtask completed: %s", subtaskID), map[string]interface{}{
		"subtaskId": subtaskID,
	})
	r.publishLocked(rec, model.EventSubtaskComplete, map[string]interface{}{
		"subtaskId": subtaskID,
	})
	return nil
}

func (r *executionRepository) Complete(id, summary string) error {
	return r.Transition(id, model.StatusCompleted, func(rec *model.ExecutionRecord) {
		if summary != "" {
			rec.Result.Summary = summary
		}
		msg := summary
		if msg == "" {
			msg = "Execution completed successfully"
		}
		r.appendLogLocked(rec, model.LogSystem, msg, nil)
	})
}

func (r *executionRepository) Fail(id, errMessage string) error {
	return r.Transition(id, model.StatusFailed, func(rec *model.ExecutionRecord) {
		rec.Error = errMessage
		r.appendLogLocked(rec, model.LogError, fmt.Sprintf("Execution failed: %s", errMessage), nil)
	})
}

func (r *executionRepository) Cancel(id, reason string) error {
	return r.Transition(id, model.StatusCancelled, func(rec *model.ExecutionRecord) {
		if reason == "" {
			reason = "Execution cancelled by user"
		}
		r.appendLogLocked(rec, model.LogSystem, reason, nil)
	})
}

func (r *executionRepository) PruneTerminal(keep int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var terminal []*model.ExecutionRecord
	for _, rec := range r.executions {
		if rec.Status.IsTerminal() {
			terminal = append(terminal, rec)
		}
	}
	if len(terminal) <= keep {
		return 0
	}

	sort.Slice(terminal, func(i, j int) bool {
		var ti, tj time.Time
		if terminal[i].CompletedAt != nil {
			ti = *terminal[i].CompletedAt
		}
		if terminal[j].CompletedAt != nil {
			tj = *terminal[j].CompletedAt
		}
		return ti.After(tj)
	})

	pruned := 0
	for _, rec := range terminal[keep:] {
		delete(r.executions, rec.ID)
		if r.byTask[rec.TaskID] == rec.ID {
			delete(r.byTask, rec.TaskID)
		}
		pruned++
	}
	return pruned
}

// appendLogLocked assumes r.mu is held. Logs are bounded to the most recent
// maxLogEntries, oldest evicted first.
func (r *executionRepository) appendLogLocked(rec *model.ExecutionRecord, logType model.LogType, message string, metadata map[string]interface{}) {
	entry := model.LogEntry{
		ID:        fmt.Sprintf("log-%s", uuid.NewString()),
		Timestamp: time.Now(),
		Type:      logType,
		Message:   message,
		Metadata:  metadata,
	}
	rec.Logs = append(rec.Logs, entry)
	if len(rec.Logs) > maxLogEntries {
		rec.Logs = rec.Logs[len(rec.Logs)-maxLogEntries:]
	}

	r.publishLocked(rec, model.EventLogAdded, map[string]interface{}{
		"log": entry,
	})
}

// publishLocked assumes r.mu is held; bus publishes never block, so holding
// the lock keeps per-execution event order aligned with mutation order.
func (r *executionRepository) publishLocked(rec *model.ExecutionRecord, eventType model.EventType, data map[string]interface{}) {
	r.bus.Publish(model.ExecutionEvent{
		Type:        eventType,
		ExecutionID: rec.ID,
		TaskID:      rec.TaskID,
		Timestamp:   time.Now(),
		Data:        data,
	})
}
