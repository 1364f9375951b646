package http

import (
	"context"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/eventbus"
	"openclaw-dashboard/internal/service"
	"openclaw-dashboard/pkg/logger"
	"openclaw-dashboard/pkg/middleware"
)

type HttpAPIHandler struct {
	cfg       *config.Config
	log       *logger.Logger
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	bus       eventbus.Bus
}

func NewHttpAPIHandler(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	echo *echo.Echo,
	validator *goValidator.Validate,
	service *service.Service,
	bus eventbus.Bus,
) *HttpAPIHandler {
	return &HttpAPIHandler{
		cfg:       cfg,
		log:       log,
		echo:      echo,
		validator: validator,
		service:   service,
		bus:       bus,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api")

	rateLimiter := middleware.NewRateLimiterMiddleware(h.cfg.Webhook.RatePerSecond, h.cfg.Webhook.Burst)

	h.SetupExecutions(base)
	h.SetupWebhook(base, rateLimiter)
	h.SetupOpenClaw(base, rateLimiter)
}
