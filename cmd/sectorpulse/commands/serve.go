package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"SectorPulse/internal/api"
	"SectorPulse/internal/scheduler"
)

var runOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler, HTTP API and Telegram commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, buildOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		log := a.log

		var sender scheduler.Sender
		if a.notifier != nil {
			sender = a.notifier
		}
		sched := scheduler.NewScheduler(ctx, a.runner, sender, log.With().Str("component", "scheduler").Logger())
		if err := sched.RegisterAll(a.cfg.Schedule.DailyCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if a.notifier != nil {
			go a.notifier.StartPolling(ctx, sched.HandleCommand)
			log.Info().Msg("telegram polling started")
		}

		router := api.NewRouter(a.runner, a.runner, a.metrics.Handler(), log.With().Str("component", "api").Logger())
		srv := api.NewServer(a.cfg.HTTP.Addr, router, log)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		if runOnStart {
			log.Info().Msg("run-on-start enabled, executing analysis now")
			go sched.RunNow()
		}

		log.Info().Str("cron", a.cfg.Schedule.DailyCron).Msg("sectorpulse is running")
		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received, stopping")
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", envBool("RUN_ON_START"), "run one analysis immediately")
	rootCmd.AddCommand(serveCmd)
}
