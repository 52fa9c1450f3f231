package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"AssetJudge/internal/scheduler"
	"AssetJudge/internal/server"
)

var serveRunOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily scheduler, Telegram bot and HTTP API",
	Long: `Run AssetJudge as a long-lived service: the cron-driven daily scan,
Telegram command polling (when configured) and the HTTP API.

Examples:
  judge serve
  judge serve --config configs/config.yaml --run-on-start`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveRunOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true",
		"Run one scan immediately after startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("AssetJudge starting")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.NewScheduler(ctx, a.Collector, a.Gate, a.Orchestrator,
		a.Settings, a.Portfolio, a.notifier(), a.Recorder)
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		return fmt.Errorf("register cron task: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if a.Telegram != nil {
		go a.Telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	} else {
		log.Info().Msg("telegram not configured, chat delivery disabled")
	}

	if serveRunOnStart {
		log.Info().Msg("run-on-start enabled, executing scan now")
		go func() {
			if _, err := sched.RunScan(ctx); err != nil {
				log.Error().Err(err).Msg("startup scan")
			}
		}()
	}

	if cfg.Logging.Level != "debug" && cfg.Logging.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(a.Orchestrator, a.Settings, a.Portfolio, a.Recorder, sched, a.Metrics)
	err = srv.ListenAndServe(ctx, cfg.Server.Addr)
	log.Info().Msg("AssetJudge stopped")
	return err
}
