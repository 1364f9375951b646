package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/dto"
	"openclaw-dashboard/internal/model"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/pkg/logger"
)

var (
	// ErrAlreadyRunning means the task already has an active execution and
	// force was not set.
	ErrAlreadyRunning = errors.New("task already has an active execution")

	// ErrCapacityExceeded means every running slot is occupied; the task was
	// queued instead of started.
	ErrCapacityExceeded = errors.New("execution capacity exceeded")

	// ErrNotCancellable means the execution exists but is already terminal.
	ErrNotCancellable = errors.New("execution is not cancellable")
)

// AdmissionService is the front door for starting and cancelling executions.
// It enforces the concurrency cap, the one-active-execution-per-task rule,
// and owns the wait queue for tasks that could not be admitted.
type AdmissionService interface {
	CanAdmit() bool
	Start(ctx context.Context, req dto.StartExecutionRequest) (*model.ExecutionRecord, error)

	// Cancel stops an execution by ID or by task ID, or removes a queued task
	// that never started. Returns a human-readable outcome message.
	Cancel(ctx context.Context, taskID, executionID string) (string, error)

	Queue() []model.QueuedExecution
	ActiveExecutions() []*model.ExecutionRecord

	// TryDrain promotes queued tasks into free running slots.
	TryDrain(ctx context.Context)

	// RunDrainLoop watches the event bus and drains the queue whenever an
	// execution reaches a terminal state. Blocks until ctx is done.
	RunDrainLoop(ctx context.Context)
}

type admissionService struct {
	cfg        *config.Config
	log        *logger.Logger
	execRepo   repository.ExecutionRepository
	queueRepo  repository.QueueRepository
	supervisor WorkerSupervisor
	bus        busSubscriber

	// mu serializes admission decisions: the active-per-task check, the
	// capacity check and the create/enqueue they guard must be one atomic
	// section, or two racing starts can both pass them.
	mu      sync.Mutex
	pending map[string]dto.StartExecutionRequest // taskID -> queued start request
}

// busSubscriber is the slice of the event bus the drain loop needs.
type busSubscriber interface {
	Subscribe() (string, <-chan model.ExecutionEvent)
	Unsubscribe(token string)
}

func NewAdmissionService(
	cfg *config.Config,
	log *logger.Logger,
	execRepo repository.ExecutionRepository,
	queueRepo repository.QueueRepository,
	supervisor WorkerSupervisor,
	bus busSubscriber,
) AdmissionService {
	return &admissionService{
		cfg:        cfg,
		log:        log,
		execRepo:   execRepo,
		queueRepo:  queueRepo,
		supervisor: supervisor,
		bus:        bus,
		pending:    make(map[string]dto.StartExecutionRequest),
	}
}

func (s *admissionService) CanAdmit() bool {
	return s.execRepo.RunningCount() < s.cfg.Executor.MaxConcurrency
}

func (s *admissionService) Start(ctx context.Context, req dto.StartExecutionRequest) (*model.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.startLocked(ctx, req)
}

// startLocked assumes s.mu is held.
func (s *admissionService) startLocked(ctx context.Context, req dto.StartExecutionRequest) (*model.ExecutionRecord, error) {
	if existing, ok := s.execRepo.GetByTask(req.TaskID); ok && existing.Status.IsActive() {
		if !req.Force {
			s.log.InfoContext(ctx, "Start rejected, task already has an active execution",
				logger.StringField("task_id", req.TaskID),
				logger.StringField("execution_id", existing.ID),
			)
			return existing, ErrAlreadyRunning
		}
		s.log.InfoContext(ctx, "Force start, cancelling previous execution",
			logger.StringField("task_id", req.TaskID),
			logger.StringField("execution_id", existing.ID),
		)
		if err := s.execRepo.Cancel(existing.ID, "Superseded by forced restart"); err != nil && !errors.Is(err, repository.ErrAlreadyTerminal) {
			return nil, err
		}
		s.supervisor.CancelWorker(existing.ID)
	}

	if !s.CanAdmit() {
		item := s.queueRepo.Enqueue(req.TaskID, normalizePriority(req.Priority))
		s.pending[req.TaskID] = req
		s.log.InfoContext(ctx, "Capacity exceeded, task queued",
			logger.StringField("task_id", req.TaskID),
			logger.StringField("priority", string(item.Priority)),
			logger.IntField("queue_len", s.queueRepo.Len()),
		)
		return nil, ErrCapacityExceeded
	}

	rec := s.execRepo.Create(req.TaskID)
	task := model.Task{
		ID:          req.TaskID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    normalizePriority(req.Priority),
		Subtasks:    req.Subtasks,
	}

	if err := s.supervisor.Launch(ctx, rec.ID, task, req.AgentID); err != nil {
		return nil, err
	}

	updated, _ := s.execRepo.Get(rec.ID)
	if updated == nil {
		updated = rec
	}
	return updated, nil
}

func (s *admissionService) Cancel(ctx context.Context, taskID, executionID string) (string, error) {
	rec, ok := s.resolveExecution(taskID, executionID)
	if !ok {
		if taskID != "" && s.queueRepo.Remove(taskID) {
			s.clearPending(taskID)
			s.log.InfoContext(ctx, "Removed queued task before start",
				logger.StringField("task_id", taskID),
			)
			return "Task removed from execution queue", nil
		}
		return "", repository.ErrExecutionNotFound
	}

	if rec.Status.IsTerminal() {
		return "", ErrNotCancellable
	}

	if err := s.execRepo.Cancel(rec.ID, "Execution cancelled by user"); err != nil {
		if errors.Is(err, repository.ErrAlreadyTerminal) {
			return "", ErrNotCancellable
		}
		return "", err
	}

	killed := s.supervisor.CancelWorker(rec.ID)
	s.queueRepo.Remove(rec.TaskID)
	s.clearPending(rec.TaskID)

	s.log.InfoContext(ctx, "Execution cancelled",
		logger.StringField("execution_id", rec.ID),
		logger.StringField("task_id", rec.TaskID),
		logger.BoolField("worker_killed", killed),
	)
	return "Execution cancelled", nil
}

func (s *admissionService) Queue() []model.QueuedExecution {
	return s.queueRepo.List()
}

func (s *admissionService) ActiveExecutions() []*model.ExecutionRecord {
	return s.execRepo.ActiveExecutions()
}

func (s *admissionService) TryDrain(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.CanAdmit() {
		item, ok := s.queueRepo.Dequeue()
		if !ok {
			return
		}

		req, ok := s.pending[item.TaskID]
		delete(s.pending, item.TaskID)
		if !ok {
			s.log.Warn("Queued task has no stored start request, dropping",
				logger.StringField("task_id", item.TaskID),
			)
			continue
		}

		s.log.InfoContext(ctx, "Promoting queued task",
			logger.StringField("task_id", item.TaskID),
			logger.StringField("priority", string(item.Priority)),
		)

		if _, err := s.startLocked(ctx, req); err != nil {
			switch {
			case errors.Is(err, ErrCapacityExceeded):
				// Re-queued; another drain runs when a slot frees.
				return
			case errors.Is(err, ErrAlreadyRunning):
				s.log.InfoContext(ctx, "Queued task restarted elsewhere, dropping",
					logger.StringField("task_id", item.TaskID),
				)
			default:
				s.log.Error("Failed to promote queued task",
					logger.StringField("task_id", item.TaskID),
					logger.ErrorField(err),
				)
			}
		}
	}
}

func (s *admissionService) RunDrainLoop(ctx context.Context) {
	token, events := s.bus.Subscribe()
	defer s.bus.Unsubscribe(token)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if freesSlot(ev) {
				s.TryDrain(ctx)
			}
		}
	}
}

// freesSlot reports whether an event can mean a running slot opened up.
func freesSlot(ev model.ExecutionEvent) bool {
	switch ev.Type {
	case model.EventExecutionCompleted, model.EventExecutionFailed:
		return true
	case model.EventStatusChanged:
		status, _ := ev.Data["status"].(string)
		return status == string(model.StatusCancelled)
	default:
		return false
	}
}

func (s *admissionService) resolveExecution(taskID, executionID string) (*model.ExecutionRecord, bool) {
	if executionID != "" {
		if rec, ok := s.execRepo.Get(executionID); ok {
			return rec, true
		}
	}
	if taskID != "" {
		if rec, ok := s.execRepo.GetByTask(taskID); ok {
			return rec, true
		}
	}
	return nil, false
}

func (s *admissionService) clearPending(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, taskID)
}

func normalizePriority(raw string) model.Priority {
	switch p := model.Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
		return p
	default:
		return model.PriorityMedium
	}
}
