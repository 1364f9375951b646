package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/dto"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/pkg/logger"
)

var (
	ErrMemoryFileNotFound = errors.New("memory file not found")
	ErrInvalidMemoryName  = errors.New("invalid memory file name")
)

// maxLogTail bounds how many trailing log lines one request returns.
const maxLogTail = 200

// OpenClawService surfaces the external worker's observable state: gateway
// health, its log file and its memory directory, plus one-shot commands.
type OpenClawService interface {
	Status(ctx context.Context) dto.StatusResponse
	TailLogs(ctx context.Context, lastID int) (dto.WorkerLogsResponse, error)
	ListMemory(ctx context.Context) (dto.MemoryListResponse, error)
	ReadMemory(ctx context.Context, name string) (dto.MemoryFileResponse, error)
	RunCommand(ctx context.Context, req dto.CommandRequest) (string, error)
}

type openClawService struct {
	cfg         *config.Config
	log         *logger.Logger
	gatewayRepo repository.OpenClawGatewayRepository
	supervisor  WorkerSupervisor
}

func NewOpenClawService(
	cfg *config.Config,
	log *logger.Logger,
	gatewayRepo repository.OpenClawGatewayRepository,
	supervisor WorkerSupervisor,
) OpenClawService {
	return &openClawService{
		cfg:         cfg,
		log:         log,
		gatewayRepo: gatewayRepo,
		supervisor:  supervisor,
	}
}

func (s *openClawService) Status(ctx context.Context) dto.StatusResponse {
	resp := dto.StatusResponse{
		Gateway: s.gatewayRepo.Status(ctx),
	}

	entries, err := os.ReadDir(s.cfg.OpenClaw.MemoryDir)
	if err != nil {
		return resp
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		resp.MemoryFiles++
		resp.MemorySize += info.Size()
	}
	return resp
}

func (s *openClawService) TailLogs(ctx context.Context, lastID int) (dto.WorkerLogsResponse, error) {
	resp := dto.WorkerLogsResponse{Logs: []dto.WorkerLogLine{}, LastID: lastID}

	data, err := os.ReadFile(s.cfg.OpenClaw.LogFile)
	if err != nil {
		if os.IsNotExist(err) {
			return resp, nil
		}
		return resp, fmt.Errorf("failed to read worker log file: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	start := 0
	if len(lines) > maxLogTail {
		start = len(lines) - maxLogTail
	}

	// Line numbers are stable IDs as long as the file only grows, which lets
	// pollers pass lastId and receive just the delta.
	for i := start; i < len(lines); i++ {
		id := i + 1
		if id <= lastID {
			continue
		}
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		parsed := parseWorkerLogLine(line)
		parsed.ID = id
		resp.Logs = append(resp.Logs, parsed)
		resp.LastID = id
	}
	return resp, nil
}

func (s *openClawService) ListMemory(ctx context.Context) (dto.MemoryListResponse, error) {
	resp := dto.MemoryListResponse{Files: []dto.MemoryFileInfo{}}

	entries, err := os.ReadDir(s.cfg.OpenClaw.MemoryDir)
	if err != nil {
		if os.IsNotExist(err) {
			return resp, nil
		}
		return resp, fmt.Errorf("failed to read memory directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		resp.Files = append(resp.Files, dto.MemoryFileInfo{
			Name:         entry.Name(),
			Path:         filepath.Join(s.cfg.OpenClaw.MemoryDir, entry.Name()),
			Size:         info.Size(),
			LastModified: info.ModTime(),
			Type:         classifyMemoryFile(entry.Name()),
		})
	}
	sort.Slice(resp.Files, func(i, j int) bool {
		return resp.Files[i].LastModified.After(resp.Files[j].LastModified)
	})
	return resp, nil
}

func (s *openClawService) ReadMemory(ctx context.Context, name string) (dto.MemoryFileResponse, error) {
	// Reject anything that is not a plain file name inside the memory dir.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return dto.MemoryFileResponse{}, fmt.Errorf("%w: %q", ErrInvalidMemoryName, name)
	}
	if !strings.HasSuffix(name, ".md") {
		return dto.MemoryFileResponse{}, fmt.Errorf("%w: only markdown files are exposed", ErrInvalidMemoryName)
	}

	path := filepath.Join(s.cfg.OpenClaw.MemoryDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return dto.MemoryFileResponse{}, ErrMemoryFileNotFound
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return dto.MemoryFileResponse{}, fmt.Errorf("failed to read memory file: %w", err)
	}

	return dto.MemoryFileResponse{
		File: dto.MemoryFileInfo{
			Name:         name,
			Path:         path,
			Size:         info.Size(),
			LastModified: info.ModTime(),
			Type:         classifyMemoryFile(name),
		},
		Content: string(content),
	}, nil
}

func (s *openClawService) RunCommand(ctx context.Context, req dto.CommandRequest) (string, error) {
	timeout := time.Duration(req.Timeout) * time.Second
	if timeout > s.cfg.Executor.MaxTimeout {
		timeout = s.cfg.Executor.MaxTimeout
	}

	s.log.InfoContext(ctx, "Running one-shot worker command",
		logger.StringField("session_id", req.SessionID),
		logger.StringField("agent", req.Agent),
	)
	return s.supervisor.RunCommand(ctx, req.Message, req.SessionID, req.Agent, timeout)
}

var dailyMemoryPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.md$`)

// classifyMemoryFile buckets a memory file by its naming convention.
func classifyMemoryFile(name string) string {
	lower := strings.ToLower(name)
	switch {
	case dailyMemoryPattern.MatchString(lower):
		return "daily"
	case strings.Contains(lower, "project"):
		return "project"
	case strings.Contains(lower, "context") || lower == "memory.md":
		return "context"
	default:
		return "other"
	}
}

var (
	bracketLogPattern = regexp.MustCompile(`^\[([^\]]+)\]\s*\[(\w+)\]\s*(?:\[([^\]]+)\]\s*)?(.*)$`)
	isoLogPattern     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[T ][0-9:.]+Z?)\s+(\w+)\s+(.*)$`)
	levelLogPattern   = regexp.MustCompile(`(?i)^(INFO|WARN|WARNING|ERROR|DEBUG|TRACE)[:\s]+(.*)$`)
)

// parseWorkerLogLine recognizes the handful of formats the worker emits:
// "[ts] [LEVEL] msg", "ts LEVEL msg", "LEVEL: msg", or free text.
func parseWorkerLogLine(line string) dto.WorkerLogLine {
	if m := bracketLogPattern.FindStringSubmatch(line); m != nil {
		return dto.WorkerLogLine{
			Timestamp: m[1],
			Level:     normalizeLogLevel(m[2]),
			Source:    m[3],
			Message:   m[4],
		}
	}
	if m := isoLogPattern.FindStringSubmatch(line); m != nil {
		return dto.WorkerLogLine{
			Timestamp: m[1],
			Level:     normalizeLogLevel(m[2]),
			Message:   m[3],
		}
	}
	if m := levelLogPattern.FindStringSubmatch(line); m != nil {
		return dto.WorkerLogLine{
			Level:   normalizeLogLevel(m[1]),
			Message: m[2],
		}
	}
	return dto.WorkerLogLine{Level: "info", Message: line}
}

func normalizeLogLevel(raw string) string {
	switch strings.ToLower(raw) {
	case "warn", "warning":
		return "warn"
	case "error":
		return "error"
	case "debug", "trace":
		return "debug"
	default:
		return "info"
	}
}
