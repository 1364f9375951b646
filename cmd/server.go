package cmd

import (
	"context"
	"errors"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"openclaw-dashboard/internal/delivery/http"
	"openclaw-dashboard/internal/repository"
	"openclaw-dashboard/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the execution orchestration server",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	repo := repository.NewRepository(appDep.cfg, appDep.cache, appDep.bus, appDep.log)
	services := service.NewService(appDep.cfg, appDep.log, repo, appDep.bus)

	httpHandler := http.NewHttpAPIHandler(
		ctx,
		appDep.cfg,
		appDep.log,
		appDep.echo,
		appDep.validator,
		services,
		appDep.bus,
	)
	apiServer := NewHTTPServer(ctx, appDep, httpHandler)

	if err := services.HousekeepingService.Start(ctx); err != nil {
		log.Fatalf("Failed to start housekeeping: %v", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := apiServer.Start(); err != nil && !errors.Is(err, httpNet.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		services.AdmissionService.RunDrainLoop(gCtx)
		return nil
	})

	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	services.HousekeepingService.Stop()

	if err := apiServer.Stop(); err != nil {
		log.Fatalf("Failed to stop HTTP server: %v", err)
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
