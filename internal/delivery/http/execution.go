package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"openclaw-dashboard/internal/dto"
	"openclaw-dashboard/internal/model"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/internal/service"
	"openclaw-dashboard/pkg/logger"
)

func (h *HttpAPIHandler) SetupExecutions(base *echo.Group) {
	v1 := base.Group("/execution")
	{
		v1.POST("/start", h.StartExecution)
		v1.POST("/cancel", h.CancelExecution)
		v1.GET("/events", h.StreamEvents)
		v1.GET("/queue", h.GetQueue)
	}
}

func (h *HttpAPIHandler) StartExecution(c echo.Context) error {
	var req dto.StartExecutionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.StartExecutionResponse{
			Success: false,
			Error:   "invalid request body",
		})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.StartExecutionResponse{
			Success: false,
			Error:   "taskId is required",
		})
	}

	rec, err := h.service.AdmissionService.Start(c.Request().Context(), req)
	switch {
	case errors.Is(err, service.ErrAlreadyRunning):
		resp := dto.StartExecutionResponse{
			Success: false,
			Error:   "Task already has an active execution",
		}
		if rec != nil {
			resp.ExecutionID = rec.ID
		}
		return c.JSON(http.StatusOK, resp)
	case errors.Is(err, service.ErrCapacityExceeded):
		return c.JSON(http.StatusOK, dto.StartExecutionResponse{
			Success: false,
			Error:   "Execution capacity exceeded",
			Message: "Task queued, it will start when a slot frees up",
		})
	case err != nil:
		h.log.Error("Failed to start execution", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.StartExecutionResponse{
			Success: false,
			Error:   "Failed to start execution",
		})
	}

	return c.JSON(http.StatusOK, dto.StartExecutionResponse{
		Success:     true,
		ExecutionID: rec.ID,
		Message:     "Execution started",
	})
}

func (h *HttpAPIHandler) CancelExecution(c echo.Context) error {
	var req dto.CancelExecutionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.CancelExecutionResponse{
			Success: false,
			Error:   "invalid request body",
		})
	}
	if req.TaskID == "" && req.ExecutionID == "" {
		return c.JSON(http.StatusBadRequest, dto.CancelExecutionResponse{
			Success: false,
			Error:   "taskId or executionId is required",
		})
	}

	message, err := h.service.AdmissionService.Cancel(c.Request().Context(), req.TaskID, req.ExecutionID)
	switch {
	case errors.Is(err, repository.ErrExecutionNotFound):
		return c.JSON(http.StatusNotFound, dto.CancelExecutionResponse{
			Success: false,
			Error:   "No execution or queued task found",
		})
	case errors.Is(err, service.ErrNotCancellable):
		return c.JSON(http.StatusOK, dto.CancelExecutionResponse{
			Success: false,
			Error:   "Execution is already in a terminal state",
		})
	case err != nil:
		h.log.Error("Failed to cancel execution", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.CancelExecutionResponse{
			Success: false,
			Error:   "Failed to cancel execution",
		})
	}

	return c.JSON(http.StatusOK, dto.CancelExecutionResponse{
		Success: true,
		Message: message,
	})
}

func (h *HttpAPIHandler) GetQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Execution queue", h.service.AdmissionService.Queue()))
}

// StreamEvents is the SSE feed. Every client gets a connected frame, a
// snapshot of executions already in flight, then live events until it
// disconnects.
func (h *HttpAPIHandler) StreamEvents(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	token, events := h.bus.Subscribe()
	defer h.bus.Unsubscribe(token)

	h.log.Info("SSE client connected",
		logger.StringField("token", token),
		logger.StringField("remote", c.RealIP()),
	)

	if err := writeSSEEvent(w, model.ExecutionEvent{
		Type:      model.EventConnected,
		Timestamp: time.Now(),
	}); err != nil {
		return nil
	}

	// Snapshot so late joiners see executions started before they connected.
	for _, rec := range h.service.AdmissionService.ActiveExecutions() {
		err := writeSSEEvent(w, model.ExecutionEvent{
			Type:        model.EventExecutionStarted,
			ExecutionID: rec.ID,
			TaskID:      rec.TaskID,
			Timestamp:   time.Now(),
			Data: map[string]interface{}{
				"status":   string(rec.Status),
				"progress": rec.Progress,
			},
		})
		if err != nil {
			return nil
		}
	}

	heartbeat := time.NewTicker(h.cfg.Events.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			h.log.Info("SSE client disconnected", logger.StringField("token", token))
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeSSEEvent(w, ev); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeSSEEvent(w *echo.Response, ev model.ExecutionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}
