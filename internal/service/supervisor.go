package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/agent"
	"openclaw-dashboard/internal/model"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/pkg/logger"
	"openclaw-dashboard/pkg/utils"
)

// spawnGrace is added on top of the worker's own --timeout so the binary gets
// a chance to wind down before the context kills it.
const spawnGrace = 30 * time.Second

// WorkerSupervisor spawns and watches the external worker process for an
// execution, relaying its output into the execution registry.
type WorkerSupervisor interface {
	// Launch starts the worker for an execution asynchronously. It returns an
	// error only when the execution cannot even reach the starting state
	// (e.g. it was cancelled while pending).
	Launch(ctx context.Context, executionID string, task model.Task, agentID string) error

	// CancelWorker kills the worker process of an in-flight execution, if one
	// is tracked. Returns whether a process was signalled.
	CancelWorker(executionID string) bool

	// RunCommand runs a one-shot agent command outside any execution record.
	RunCommand(ctx context.Context, message, sessionID, agentName string, timeout time.Duration) (string, error)
}

type workerSupervisor struct {
	cfg      *config.Config
	log      *logger.Logger
	execRepo repository.ExecutionRepository

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewWorkerSupervisor(cfg *config.Config, log *logger.Logger, execRepo repository.ExecutionRepository) WorkerSupervisor {
	return &workerSupervisor{
		cfg:      cfg,
		log:      log,
		execRepo: execRepo,
		cancels:  make(map[string]context.CancelFunc),
	}
}

func (s *workerSupervisor) Launch(ctx context.Context, executionID string, task model.Task, agentID string) error {
	profile := agent.SelectProfile(agentID, task)
	timeout := s.workerTimeout(profile)
	prompt := agent.BuildPrompt(profile, task, executionID, s.cfg.Executor.CallbackBaseURL)

	// A cancel that raced us here surfaces as a terminal-state rejection and
	// means no process must be spawned.
	if err := s.execRepo.Transition(executionID, model.StatusStarting, nil); err != nil {
		return fmt.Errorf("execution cannot start: %w", err)
	}

	s.log.InfoContext(ctx, "Launching worker",
		logger.StringField("execution_id", executionID),
		logger.StringField("task_id", task.ID),
		logger.StringField("agent", profile.ID),
		logger.DurationField("timeout", timeout),
	)

	runCtx, cancel := context.WithTimeout(context.Background(), timeout+spawnGrace)
	s.track(executionID, cancel)

	utils.GoSafe(func() {
		defer cancel()
		defer s.untrack(executionID)
		s.run(runCtx, executionID, profile, prompt, timeout)
	})

	return nil
}

func (s *workerSupervisor) run(ctx context.Context, executionID string, profile *agent.Profile, prompt string, timeout time.Duration) {
	_ = s.execRepo.AppendLog(executionID, model.LogSystem, "Spawning OpenClaw agent...", nil)

	args := []string{
		"agent",
		"--message", prompt,
		"--json",
		"--agent", profile.ID,
		"--timeout", strconv.Itoa(int(timeout.Seconds())),
	}
	cmd := exec.CommandContext(ctx, s.cfg.Executor.Binary, args...)

	stderr := newLineWriter(func(line string) {
		_ = s.execRepo.AppendLog(executionID, model.LogInfo, line, nil)
	})
	cmd.Stdout = newProgressWriter(func(progress int) {
		_ = s.execRepo.SetProgress(executionID, progress, "", false)
	})
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		s.finishFailed(executionID, fmt.Sprintf("failed to spawn worker: %v", err))
		return
	}

	if err := s.execRepo.Transition(executionID, model.StatusRunning, nil); err != nil {
		// Cancelled between spawn and confirmation. Kill and reap the
		// process here; nothing else waits on it.
		s.log.Warn("Worker spawned for an execution no longer startable",
			logger.StringField("execution_id", executionID),
			logger.ErrorField(err),
		)
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return
	}

	err := cmd.Wait()
	if err == nil {
		s.finishCompleted(executionID)
		return
	}

	detail := strings.TrimSpace(stderr.Tail())
	if detail == "" {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = fmt.Sprintf("process exited with code %d", exitErr.ExitCode())
		} else {
			detail = err.Error()
		}
	}
	s.finishFailed(executionID, detail)
}

// finishCompleted applies the process-exit success path. The registry's
// atomic guard makes this a no-op when a webhook already drove the record to
// a terminal state: webhook-driven completion wins over process exit.
func (s *workerSupervisor) finishCompleted(executionID string) {
	err := s.execRepo.Complete(executionID, "Task execution completed via CLI")
	if errors.Is(err, repository.ErrAlreadyTerminal) {
		s.log.Debug("Process exit after terminal state, ignoring",
			logger.StringField("execution_id", executionID),
		)
		return
	}
	if err != nil {
		s.log.Error("Failed to complete execution on process exit",
			logger.StringField("execution_id", executionID),
			logger.ErrorField(err),
		)
	}
}

func (s *workerSupervisor) finishFailed(executionID, detail string) {
	err := s.execRepo.Fail(executionID, detail)
	if errors.Is(err, repository.ErrAlreadyTerminal) {
		s.log.Debug("Process failure after terminal state, ignoring",
			logger.StringField("execution_id", executionID),
		)
		return
	}
	if err != nil {
		s.log.Error("Failed to fail execution on process exit",
			logger.StringField("execution_id", executionID),
			logger.ErrorField(err),
		)
	}
}

func (s *workerSupervisor) CancelWorker(executionID string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[executionID]
	delete(s.cancels, executionID)
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

func (s *workerSupervisor) RunCommand(ctx context.Context, message, sessionID, agentName string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = s.cfg.Executor.DefaultTimeout
	}

	args := []string{"agent", "--message", message, "--json"}
	if sessionID != "" {
		args = append(args, "--session-id", sessionID)
	} else if agentName != "" {
		args = append(args, "--agent", agentName)
	} else {
		args = append(args, "--agent", "main")
	}
	args = append(args, "--timeout", strconv.Itoa(int(timeout.Seconds())))

	cmdCtx, cancel := context.WithTimeout(ctx, timeout+spawnGrace)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, s.cfg.Executor.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return stdout.String(), fmt.Errorf("worker command failed: %s", detail)
	}
	return stdout.String(), nil
}

func (s *workerSupervisor) workerTimeout(profile *agent.Profile) time.Duration {
	timeout := s.cfg.Executor.DefaultTimeout
	if profile.DefaultTimeout > 0 {
		timeout = profile.DefaultTimeout
	}
	if s.cfg.Executor.MaxTimeout > 0 && timeout > s.cfg.Executor.MaxTimeout {
		timeout = s.cfg.Executor.MaxTimeout
	}
	return timeout
}

func (s *workerSupervisor) track(executionID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels[executionID] = cancel
}

func (s *workerSupervisor) untrack(executionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, executionID)
}

var progressPattern = regexp.MustCompile(`(?i)progress[:\s]+(\d{1,3})`)

// progressWriter scans accumulated stdout for "progress: <n>" markers. This
// is a best-effort fallback for workers that never call back; the webhook
// stays the authoritative progress source.
type progressWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	last    int
	started bool
	apply   func(progress int)
}

func newProgressWriter(apply func(progress int)) *progressWriter {
	return &progressWriter{apply: apply, last: -1}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	matches := progressPattern.FindAllStringSubmatch(w.buf.String(), -1)
	if len(matches) == 0 {
		return len(p), nil
	}

	raw := matches[len(matches)-1][1]
	progress, err := strconv.Atoi(raw)
	if err != nil || progress < 0 || progress > 100 {
		return len(p), nil
	}
	if !w.started || progress != w.last {
		w.started = true
		w.last = progress
		w.apply(progress)
	}
	return len(p), nil
}

const stderrTailLimit = 2048

// lineWriter forwards complete lines to a callback and keeps a bounded tail
// for error reporting.
type lineWriter struct {
	mu      sync.Mutex
	pending bytes.Buffer
	tail    []byte
	onLine  func(line string)
}

func newLineWriter(onLine func(line string)) *lineWriter {
	return &lineWriter{onLine: onLine}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tail = append(w.tail, p...)
	if len(w.tail) > stderrTailLimit {
		w.tail = w.tail[len(w.tail)-stderrTailLimit:]
	}

	w.pending.Write(p)
	for {
		line, err := w.pending.ReadString('\n')
		if err != nil {
			// Partial line, keep it pending.
			w.pending.Reset()
			w.pending.WriteString(line)
			break
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			w.onLine(trimmed)
		}
	}
	return len(p), nil
}

func (w *lineWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.tail)
}
