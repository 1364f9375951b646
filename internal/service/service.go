package service

import (
	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/eventbus"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/pkg/logger"
)

type Service struct {
	AdmissionService    AdmissionService
	SupervisorService   WorkerSupervisor
	WebhookService      WebhookService
	OpenClawService     OpenClawService
	HousekeepingService *HousekeepingService
}

func NewService(cfg *config.Config, log *logger.Logger, repo *repository.Repository, bus eventbus.Bus) *Service {
	supervisor := NewWorkerSupervisor(cfg, log, repo.ExecutionRepo)
	admission := NewAdmissionService(cfg, log, repo.ExecutionRepo, repo.QueueRepo, supervisor, bus)

	return &Service{
		AdmissionService:    admission,
		SupervisorService:   supervisor,
		WebhookService:      NewWebhookService(log, repo.ExecutionRepo),
		OpenClawService:     NewOpenClawService(cfg, log, repo.GatewayRepo, supervisor),
		HousekeepingService: NewHousekeepingService(cfg, log, repo.ExecutionRepo, admission),
	}
}
