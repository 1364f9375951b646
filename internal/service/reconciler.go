package service

import (
	"context"
	"errors"
	"fmt"

	"openclaw-dashboard/internal/dto"
	"openclaw-dashboard/internal/model"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/pkg/logger"
)

// ErrWebhookBadRequest marks a structurally valid webhook whose payload is
// unusable (unknown action, missing field, task mismatch).
var ErrWebhookBadRequest = errors.New("invalid webhook payload")

// WebhookService reconciles worker callback reports into the execution
// registry. Reports arriving after an execution went terminal are
// acknowledged but change nothing, so worker retries stay harmless.
type WebhookService interface {
	Handle(ctx context.Context, req dto.WebhookRequest) (dto.WebhookResponse, error)
}

type webhookService struct {
	log      *logger.Logger
	execRepo repository.ExecutionRepository
}

func NewWebhookService(log *logger.Logger, execRepo repository.ExecutionRepository) WebhookService {
	return &webhookService{log: log, execRepo: execRepo}
}

func (s *webhookService) Handle(ctx context.Context, req dto.WebhookRequest) (dto.WebhookResponse, error) {
	rec, ok := s.execRepo.Get(req.ExecutionID)
	if !ok {
		return dto.WebhookResponse{}, repository.ErrExecutionNotFound
	}
	if rec.TaskID != req.TaskID {
		return dto.WebhookResponse{}, fmt.Errorf("%w: execution %s belongs to task %s, not %s",
			ErrWebhookBadRequest, req.ExecutionID, rec.TaskID, req.TaskID)
	}
	if rec.Status.IsTerminal() {
		s.log.InfoContext(ctx, "Webhook for terminal execution ignored",
			logger.StringField("execution_id", req.ExecutionID),
			logger.StringField("action", req.Action),
			logger.StringField("status", string(rec.Status)),
		)
		return dto.WebhookResponse{
			Success: false,
			Error:   fmt.Sprintf("Execution is already %s", rec.Status),
		}, nil
	}

	s.log.DebugContext(ctx, "Webhook received",
		logger.StringField("execution_id", req.ExecutionID),
		logger.StringField("task_id", req.TaskID),
		logger.StringField("action", req.Action),
	)

	var (
		resp dto.WebhookResponse
		err  error
	)
	switch req.Action {
	case dto.ActionProgressUpdate:
		resp, err = s.handleProgress(req)
	case dto.ActionSubtaskComplete:
		resp, err = s.handleSubtask(req)
	case dto.ActionLog:
		resp, err = s.handleLog(req)
	case dto.ActionRequestReview:
		resp, err = s.handleRequestReview(req)
	case dto.ActionComplete:
		resp, err = s.handleComplete(req)
	case dto.ActionError:
		resp, err = s.handleError(req)
	default:
		return dto.WebhookResponse{}, fmt.Errorf("%w: unknown action %q", ErrWebhookBadRequest, req.Action)
	}

	// A terminal race between our check and the mutation lands here; treat it
	// like the terminal check above.
	if errors.Is(err, repository.ErrAlreadyTerminal) {
		return dto.WebhookResponse{
			Success: false,
			Error:   "Execution is already in a terminal state",
		}, nil
	}
	return resp, err
}

func (s *webhookService) handleProgress(req dto.WebhookRequest) (dto.WebhookResponse, error) {
	if req.Data.Progress != nil {
		if err := s.execRepo.SetProgress(req.ExecutionID, *req.Data.Progress, req.Data.Message, true); err != nil {
			return dto.WebhookResponse{}, err
		}
		return dto.WebhookResponse{Success: true, Message: "Progress updated"}, nil
	}
	if req.Data.Message != "" {
		if err := s.execRepo.AppendLog(req.ExecutionID, model.LogProgress, req.Data.Message, nil); err != nil {
			return dto.WebhookResponse{}, err
		}
		return dto.WebhookResponse{Success: true, Message: "Progress logged"}, nil
	}
	return dto.WebhookResponse{}, fmt.Errorf("%w: progress_update requires progress or message", ErrWebhookBadRequest)
}

func (s *webhookService) handleSubtask(req dto.WebhookRequest) (dto.WebhookResponse, error) {
	if req.Data.SubtaskID == "" {
		return dto.WebhookResponse{}, fmt.Errorf("%w: subtask_complete requires subtaskId", ErrWebhookBadRequest)
	}
	if err := s.execRepo.MarkSubtaskComplete(req.ExecutionID, req.Data.SubtaskID); err != nil {
		return dto.WebhookResponse{}, err
	}
	return dto.WebhookResponse{
		Success:   true,
		Message:   "Subtask marked complete",
		SubtaskID: req.Data.SubtaskID,
	}, nil
}

func (s *webhookService) handleLog(req dto.WebhookRequest) (dto.WebhookResponse, error) {
	if req.Data.Message == "" {
		return dto.WebhookResponse{}, fmt.Errorf("%w: log requires message", ErrWebhookBadRequest)
	}
	if err := s.execRepo.AppendLog(req.ExecutionID, model.LogInfo, req.Data.Message, nil); err != nil {
		return dto.WebhookResponse{}, err
	}
	return dto.WebhookResponse{Success: true, Message: "Log added"}, nil
}

func (s *webhookService) handleRequestReview(req dto.WebhookRequest) (dto.WebhookResponse, error) {
	notes := req.Data.ReviewNotes
	err := s.execRepo.Transition(req.ExecutionID, model.StatusPaused, func(rec *model.ExecutionRecord) {
		rec.Result.ReviewNotes = notes
	})
	if err != nil {
		return dto.WebhookResponse{}, err
	}
	_ = s.execRepo.AppendLog(req.ExecutionID, model.LogSystem, "Worker requested human review", nil)
	return dto.WebhookResponse{
		Success:      true,
		Message:      "Execution paused for review",
		TargetStatus: "review",
	}, nil
}

func (s *webhookService) handleComplete(req dto.WebhookRequest) (dto.WebhookResponse, error) {
	if err := s.execRepo.Complete(req.ExecutionID, req.Data.Summary); err != nil {
		return dto.WebhookResponse{}, err
	}
	return dto.WebhookResponse{
		Success:      true,
		Message:      "Execution completed",
		TargetStatus: "done",
	}, nil
}

func (s *webhookService) handleError(req dto.WebhookRequest) (dto.WebhookResponse, error) {
	msg := req.Data.Error
	if msg == "" {
		msg = "Worker reported an unspecified error"
	}
	if err := s.execRepo.Fail(req.ExecutionID, msg); err != nil {
		return dto.WebhookResponse{}, err
	}
	return dto.WebhookResponse{
		Success: true,
		Message: "Execution marked as failed",
	}, nil
}
