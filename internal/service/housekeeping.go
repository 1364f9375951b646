package service

import (
	"context"

	"github.com/robfig/cron/v3"

	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/pkg/logger"
)

// HousekeepingService periodically prunes terminal execution records and
// sweeps the queue, as a backstop for drain events that were missed.
type HousekeepingService struct {
	cfg       *config.Config
	log       *logger.Logger
	execRepo  repository.ExecutionRepository
	admission AdmissionService
	cron      *cron.Cron
}

func NewHousekeepingService(
	cfg *config.Config,
	log *logger.Logger,
	execRepo repository.ExecutionRepository,
	admission AdmissionService,
) *HousekeepingService {
	return &HousekeepingService{
		cfg:       cfg,
		log:       log,
		execRepo:  execRepo,
		admission: admission,
		cron:      cron.New(),
	}
}

func (h *HousekeepingService) Start(ctx context.Context) error {
	_, err := h.cron.AddFunc(h.cfg.Housekeeping.Schedule, func() {
		h.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	h.cron.Start()
	h.log.Info("Housekeeping scheduled",
		logger.StringField("schedule", h.cfg.Housekeeping.Schedule),
		logger.IntField("keep_terminal", h.cfg.Housekeeping.KeepTerminal),
	)
	return nil
}

func (h *HousekeepingService) Stop() {
	<-h.cron.Stop().Done()
}

// Sweep runs one housekeeping pass.
func (h *HousekeepingService) Sweep(ctx context.Context) {
	pruned := h.execRepo.PruneTerminal(h.cfg.Housekeeping.KeepTerminal)
	if pruned > 0 {
		h.log.Info("Pruned terminal executions",
			logger.IntField("pruned", pruned),
		)
	}
	h.admission.TryDrain(ctx)
}
