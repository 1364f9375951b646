package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"openclaw-dashboard/internal/dto"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/internal/service"
	"openclaw-dashboard/pkg/logger"
)

func (h *HttpAPIHandler) SetupWebhook(base *echo.Group, rateLimiter echo.MiddlewareFunc) {
	v1 := base.Group("/openclaw/webhook")
	{
		v1.POST("", h.HandleWebhook, rateLimiter)
		v1.GET("", h.DescribeWebhook)
	}
}

func (h *HttpAPIHandler) HandleWebhook(c echo.Context) error {
	var req dto.WebhookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.WebhookResponse{
			Success: false,
			Error:   "invalid request body",
		})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.WebhookResponse{
			Success: false,
			Error:   "taskId, executionId and action are required",
		})
	}

	resp, err := h.service.WebhookService.Handle(c.Request().Context(), req)
	switch {
	case errors.Is(err, repository.ErrExecutionNotFound):
		return c.JSON(http.StatusNotFound, dto.WebhookResponse{
			Success: false,
			Error:   "Execution not found",
		})
	case errors.Is(err, service.ErrWebhookBadRequest):
		return c.JSON(http.StatusBadRequest, dto.WebhookResponse{
			Success: false,
			Error:   err.Error(),
		})
	case err != nil:
		h.log.Error("Failed to handle webhook", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.WebhookResponse{
			Success: false,
			Error:   "Failed to process webhook",
		})
	}

	return c.JSON(http.StatusOK, resp)
}

// DescribeWebhook documents the callback protocol for anyone poking the
// endpoint with a browser.
func (h *HttpAPIHandler) DescribeWebhook(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"endpoint": "/api/openclaw/webhook",
		"method":   "POST",
		"format": map[string]interface{}{
			"taskId":      "string (required)",
			"executionId": "string (required)",
			"action":      "string (required)",
			"data":        "object (action-dependent)",
		},
		"actions": []map[string]string{
			{"action": dto.ActionProgressUpdate, "data": `{"progress": 0-100, "message": "optional"}`},
			{"action": dto.ActionSubtaskComplete, "data": `{"subtaskId": "st-xxx"}`},
			{"action": dto.ActionLog, "data": `{"message": "log text"}`},
			{"action": dto.ActionRequestReview, "data": `{"reviewNotes": "what to verify"}`},
			{"action": dto.ActionComplete, "data": `{"summary": "what was done"}`},
			{"action": dto.ActionError, "data": `{"error": "what went wrong"}`},
		},
	})
}
