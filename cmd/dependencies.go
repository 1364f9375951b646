package cmd

import (
	"context"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"openclaw-dashboard/config"
	"openclaw-dashboard/internal/eventbus"
	"openclaw-dashboard/pkg/cache"
	"openclaw-dashboard/pkg/logger"
)

type AppDependency struct {
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	bus       eventbus.Bus
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		echo:      e,
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		bus:       eventbus.NewBus(log, cfg.Events.SubscriberBuffer),
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	d.bus.Close()
	return nil
}
