package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"openclaw-dashboard/internal/dto"
	"openclaw-dashboard/internal/service"
	"openclaw-dashboard/pkg/logger"
)

func (h *HttpAPIHandler) SetupOpenClaw(base *echo.Group, rateLimiter echo.MiddlewareFunc) {
	v1 := base.Group("/openclaw")
	{
		v1.GET("/status", h.GetOpenClawStatus)
		v1.GET("/logs", h.GetOpenClawLogs)
		v1.GET("/memory", h.GetOpenClawMemory)
		v1.POST("/command", h.RunOpenClawCommand, rateLimiter)
	}
}

func (h *HttpAPIHandler) GetOpenClawStatus(c echo.Context) error {
	status := h.service.OpenClawService.Status(c.Request().Context())
	return c.JSON(http.StatusOK, status)
}

func (h *HttpAPIHandler) GetOpenClawLogs(c echo.Context) error {
	lastID := 0
	if raw := c.QueryParam("lastId"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("lastId must be a non-negative integer"))
		}
		lastID = parsed
	}

	logs, err := h.service.OpenClawService.TailLogs(c.Request().Context(), lastID)
	if err != nil {
		h.log.Error("Failed to read worker logs", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "Failed to read worker logs", nil))
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *HttpAPIHandler) GetOpenClawMemory(c echo.Context) error {
	ctx := c.Request().Context()

	if name := c.QueryParam("file"); name != "" {
		file, err := h.service.OpenClawService.ReadMemory(ctx, name)
		switch {
		case errors.Is(err, service.ErrInvalidMemoryName):
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
		case errors.Is(err, service.ErrMemoryFileNotFound):
			return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, "Memory file not found", nil))
		case err != nil:
			h.log.Error("Failed to read memory file", logger.ErrorField(err))
			return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "Failed to read memory file", nil))
		}
		return c.JSON(http.StatusOK, file)
	}

	list, err := h.service.OpenClawService.ListMemory(ctx)
	if err != nil {
		h.log.Error("Failed to list memory files", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "Failed to list memory files", nil))
	}
	return c.JSON(http.StatusOK, list)
}

func (h *HttpAPIHandler) RunOpenClawCommand(c echo.Context) error {
	var req dto.CommandRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.CommandResponse{
			Success: false,
			Error:   "invalid request body",
		})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.CommandResponse{
			Success: false,
			Error:   "message is required",
		})
	}

	output, err := h.service.OpenClawService.RunCommand(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusOK, dto.CommandResponse{
			Success: false,
			Output:  output,
			Error:   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, dto.CommandResponse{
		Success: true,
		Output:  output,
	})
}
