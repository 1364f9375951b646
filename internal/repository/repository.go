package repository

import (
	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/eventbus"
	"openclaw-dashboard/pkg/cache"
	"openclaw-dashboard/pkg/logger"
)

type Repository struct {
	ExecutionRepo ExecutionRepository
	QueueRepo     QueueRepository
	GatewayRepo   OpenClawGatewayRepository
}

func NewRepository(cfg *config.Config, c cache.Cache, bus eventbus.Bus, log *logger.Logger) *Repository {
	return &Repository{
		ExecutionRepo: NewExecutionRepository(log, bus),
		QueueRepo:     NewQueueRepository(),
		GatewayRepo:   NewOpenClawGatewayRepository(cfg, log, c),
	}
}
