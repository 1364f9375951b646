package repository

import (
	"context"
	"net/http"
	"os"

	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/dto"
	"openclaw-dashboard/pkg/cache"
	"openclaw-dashboard/pkg/httpclient"
	"openclaw-dashboard/pkg/logger"
)

const gatewayStatusCacheKey = "openclaw:gateway_status"

// OpenClawGatewayRepository probes the OpenClaw gateway. The gateway is an
// external collaborator; a probe failure degrades to a log-file freshness
// check, never to an error.
type OpenClawGatewayRepository interface {
	Status(ctx context.Context) dto.GatewayStatus
}

type openClawGatewayRepository struct {
	cfg    *config.Config
	log    *logger.Logger
	cache  cache.Cache
	client httpclient.HTTPClient
}

func NewOpenClawGatewayRepository(cfg *config.Config, log *logger.Logger, c cache.Cache) OpenClawGatewayRepository {
	return &openClawGatewayRepository{
		cfg:    cfg,
		log:    log,
		cache:  c,
		client: httpclient.New(cfg.OpenClaw.GatewayURL, cfg.OpenClaw.GatewayTimeout, cfg.OpenClaw.AuthToken),
	}
}

func (r *openClawGatewayRepository) Status(ctx context.Context) dto.GatewayStatus {
	if cached, ok := cache.GetTyped[dto.GatewayStatus](r.cache, gatewayStatusCacheKey); ok {
		return cached
	}

	status := r.probe(ctx)
	r.cache.Set(gatewayStatusCacheKey, status, r.cfg.OpenClaw.StatusCacheTTL)
	return status
}

func (r *openClawGatewayRepository) probe(ctx context.Context) dto.GatewayStatus {
	var health dto.GatewayHealthResponse
	resp, err := r.client.Get(ctx, "/api/health", nil, nil, &health)
	if err == nil && resp.StatusCode == http.StatusOK {
		return dto.GatewayStatus{
			Connected: true,
			Sessions:  health.ActiveSessions,
			Uptime:    health.Uptime,
		}
	}

	r.log.DebugContext(ctx, "Gateway health probe failed, falling back to log file check",
		logger.ErrorField(err),
	)

	// Gateway unreachable; a fresh worker log file still counts as alive.
	if _, statErr := os.Stat(r.cfg.OpenClaw.LogFile); statErr == nil {
		return dto.GatewayStatus{Connected: true}
	}
	return dto.GatewayStatus{}
}
