package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/dto"
	"openclaw-dashboard/internal/eventbus"
	"openclaw-dashboard/internal/model"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/pkg/logger"
)

// stubSupervisor drives records straight to running without spawning any
// process.
type stubSupervisor struct {
	repo repository.ExecutionRepository

	mu        sync.Mutex
	launched  []string
	cancelled []string
}

func (s *stubSupervisor) Launch(ctx context.Context, executionID string, task model.Task, agentID string) error {
	if err := s.repo.Transition(executionID, model.StatusStarting, nil); err != nil {
		return err
	}
	if err := s.repo.Transition(executionID, model.StatusRunning, nil); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launched = append(s.launched, executionID)
	return nil
}

func (s *stubSupervisor) CancelWorker(executionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, executionID)
	return true
}

func (s *stubSupervisor) RunCommand(ctx context.Context, message, sessionID, agentName string, timeout time.Duration) (string, error) {
	return "", nil
}

func (s *stubSupervisor) cancelledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.cancelled))
	copy(out, s.cancelled)
	return out
}

type admissionFixture struct {
	admission  AdmissionService
	execRepo   repository.ExecutionRepository
	queueRepo  repository.QueueRepository
	supervisor *stubSupervisor
	bus        eventbus.Bus
}

func newAdmissionFixture(maxConcurrency int) *admissionFixture {
	cfg := &config.Config{
		Executor: config.Executor{
			MaxConcurrency: maxConcurrency,
			DefaultTimeout: 300 * time.Second,
			MaxTimeout:     600 * time.Second,
			Binary:         "openclaw",
		},
	}
	log := logger.NewNop()
	bus := eventbus.NewBus(log, 1024)
	execRepo := repository.NewExecutionRepository(log, bus)
	queueRepo := repository.NewQueueRepository()
	supervisor := &stubSupervisor{repo: execRepo}

	return &admissionFixture{
		admission:  NewAdmissionService(cfg, log, execRepo, queueRepo, supervisor, bus),
		execRepo:   execRepo,
		queueRepo:  queueRepo,
		supervisor: supervisor,
		bus:        bus,
	}
}

func startReq(taskID string) dto.StartExecutionRequest {
	return dto.StartExecutionRequest{
		TaskID:   taskID,
		Title:    "Task " + taskID,
		Priority: "medium",
	}
}

func TestAdmissionService_StartRunsImmediately(t *testing.T) {
	f := newAdmissionFixture(2)

	rec, err := f.admission.Start(context.Background(), startReq("task-1"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.StatusRunning, rec.Status)
	assert.Equal(t, 1, f.execRepo.RunningCount())
}

func TestAdmissionService_SecondStartSameTaskRejected(t *testing.T) {
	f := newAdmissionFixture(2)
	ctx := context.Background()

	first, err := f.admission.Start(ctx, startReq("task-1"))
	require.NoError(t, err)

	second, err := f.admission.Start(ctx, startReq("task-1"))
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	// Still exactly one active execution for the task.
	assert.Equal(t, 1, len(f.execRepo.ActiveExecutions()))
}

func TestAdmissionService_ConcurrentStartsSameTask(t *testing.T) {
	f := newAdmissionFixture(4)
	ctx := context.Background()

	const starters = 8
	var (
		ready sync.WaitGroup
		done  sync.WaitGroup
		gate  = make(chan struct{})

		resMu    sync.Mutex
		admitted int
		rejected int
	)

	ready.Add(starters)
	done.Add(starters)
	for i := 0; i < starters; i++ {
		go func() {
			defer done.Done()
			ready.Done()
			<-gate
			_, err := f.admission.Start(ctx, startReq("task-1"))
			resMu.Lock()
			defer resMu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrAlreadyRunning):
				rejected++
			default:
				t.Errorf("unexpected start error: %v", err)
			}
		}()
	}

	ready.Wait()
	close(gate)
	done.Wait()

	// Exactly one of the racing starts may win the task.
	assert.Equal(t, 1, admitted)
	assert.Equal(t, starters-1, rejected)
	assert.Len(t, f.execRepo.ActiveExecutions(), 1)
}

func TestAdmissionService_ConcurrentStartsRespectCapacity(t *testing.T) {
	f := newAdmissionFixture(1)
	ctx := context.Background()

	const starters = 6
	var (
		done sync.WaitGroup
		gate = make(chan struct{})
	)

	done.Add(starters)
	for i := 0; i < starters; i++ {
		taskID := "task-" + string(rune('a'+i))
		go func() {
			defer done.Done()
			<-gate
			_, err := f.admission.Start(ctx, startReq(taskID))
			if err != nil && !errors.Is(err, ErrCapacityExceeded) {
				t.Errorf("unexpected start error: %v", err)
			}
		}()
	}

	close(gate)
	done.Wait()

	assert.Equal(t, 1, f.execRepo.RunningCount())
	assert.Len(t, f.admission.Queue(), starters-1)
}

func TestAdmissionService_ForceSupersedesActiveExecution(t *testing.T) {
	f := newAdmissionFixture(2)
	ctx := context.Background()

	first, err := f.admission.Start(ctx, startReq("task-1"))
	require.NoError(t, err)

	req := startReq("task-1")
	req.Force = true
	second, err := f.admission.Start(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	old, _ := f.execRepo.Get(first.ID)
	assert.Equal(t, model.StatusCancelled, old.Status)
	assert.Contains(t, f.supervisor.cancelledIDs(), first.ID)
}

func TestAdmissionService_CapacityExceededQueues(t *testing.T) {
	f := newAdmissionFixture(2)
	ctx := context.Background()

	_, err := f.admission.Start(ctx, startReq("task-1"))
	require.NoError(t, err)
	_, err = f.admission.Start(ctx, startReq("task-2"))
	require.NoError(t, err)

	rec, err := f.admission.Start(ctx, startReq("task-3"))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Nil(t, rec)

	// No execution record was created for the queued task.
	_, ok := f.execRepo.GetByTask("task-3")
	assert.False(t, ok)

	queue := f.admission.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, "task-3", queue[0].TaskID)
	assert.Equal(t, 2, f.execRepo.RunningCount())
}

func TestAdmissionService_CancelQueuedTask(t *testing.T) {
	f := newAdmissionFixture(1)
	ctx := context.Background()

	_, err := f.admission.Start(ctx, startReq("task-1"))
	require.NoError(t, err)
	_, err = f.admission.Start(ctx, startReq("task-2"))
	require.ErrorIs(t, err, ErrCapacityExceeded)

	msg, err := f.admission.Cancel(ctx, "task-2", "")
	require.NoError(t, err)
	assert.Contains(t, msg, "queue")
	assert.Empty(t, f.admission.Queue())

	// A later drain must not resurrect the cancelled task.
	require.NoError(t, f.execRepo.Cancel(mustExecID(t, f, "task-1"), ""))
	f.admission.TryDrain(ctx)
	_, ok := f.execRepo.GetByTask("task-2")
	assert.False(t, ok)
}

func TestAdmissionService_CancelRunningExecution(t *testing.T) {
	f := newAdmissionFixture(2)
	ctx := context.Background()

	rec, err := f.admission.Start(ctx, startReq("task-1"))
	require.NoError(t, err)

	msg, err := f.admission.Cancel(ctx, "", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Execution cancelled", msg)

	got, _ := f.execRepo.Get(rec.ID)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.Contains(t, f.supervisor.cancelledIDs(), rec.ID)
}

func TestAdmissionService_CancelErrors(t *testing.T) {
	f := newAdmissionFixture(2)
	ctx := context.Background()

	_, err := f.admission.Cancel(ctx, "task-missing", "exec-missing")
	assert.ErrorIs(t, err, repository.ErrExecutionNotFound)

	rec, err := f.admission.Start(ctx, startReq("task-1"))
	require.NoError(t, err)
	require.NoError(t, f.execRepo.Complete(rec.ID, "done"))

	_, err = f.admission.Cancel(ctx, "", rec.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestAdmissionService_TryDrainPromotesByPriority(t *testing.T) {
	f := newAdmissionFixture(1)
	ctx := context.Background()

	running, err := f.admission.Start(ctx, startReq("task-1"))
	require.NoError(t, err)

	low := startReq("task-low")
	low.Priority = "low"
	_, err = f.admission.Start(ctx, low)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	high := startReq("task-high")
	high.Priority = "high"
	_, err = f.admission.Start(ctx, high)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	require.NoError(t, f.execRepo.Complete(running.ID, "done"))
	f.admission.TryDrain(ctx)

	promoted, ok := f.execRepo.GetByTask("task-high")
	require.True(t, ok)
	assert.Equal(t, model.StatusRunning, promoted.Status)

	// The low-priority task stays queued behind the refilled slot.
	_, ok = f.execRepo.GetByTask("task-low")
	assert.False(t, ok)
	require.Len(t, f.admission.Queue(), 1)
	assert.Equal(t, "task-low", f.admission.Queue()[0].TaskID)
}

func TestAdmissionService_DrainLoopReactsToTerminalEvents(t *testing.T) {
	f := newAdmissionFixture(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	running, err := f.admission.Start(ctx, startReq("task-1"))
	require.NoError(t, err)
	_, err = f.admission.Start(ctx, startReq("task-2"))
	require.ErrorIs(t, err, ErrCapacityExceeded)

	go f.admission.RunDrainLoop(ctx)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, f.execRepo.Complete(running.ID, "done"))

	require.Eventually(t, func() bool {
		rec, ok := f.execRepo.GetByTask("task-2")
		return ok && rec.Status == model.StatusRunning
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFreesSlot(t *testing.T) {
	tests := []struct {
		name string
		ev   model.ExecutionEvent
		want bool
	}{
		{name: "completed", ev: model.ExecutionEvent{Type: model.EventExecutionCompleted}, want: true},
		{name: "failed", ev: model.ExecutionEvent{Type: model.EventExecutionFailed}, want: true},
		{
			name: "cancelled status change",
			ev: model.ExecutionEvent{
				Type: model.EventStatusChanged,
				Data: map[string]interface{}{"status": "cancelled"},
			},
			want: true,
		},
		{
			name: "running status change",
			ev: model.ExecutionEvent{
				Type: model.EventStatusChanged,
				Data: map[string]interface{}{"status": "running"},
			},
			want: false,
		},
		{name: "log added", ev: model.ExecutionEvent{Type: model.EventLogAdded}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, freesSlot(tt.ev))
		})
	}
}

func mustExecID(t *testing.T, f *admissionFixture, taskID string) string {
	t.Helper()
	rec, ok := f.execRepo.GetByTask(taskID)
	if !ok {
		t.Fatalf("no execution for task %s", taskID)
	}
	return rec.ID
}
