package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"AssetJudge/internal/collector"
	"AssetJudge/internal/model"
	"AssetJudge/internal/notifier"
	"AssetJudge/internal/portfolio"
	"AssetJudge/internal/recorder"
	"AssetJudge/internal/scanner"
	"AssetJudge/internal/settings"
)

// BatchCollector produces the market data for one scan.
type BatchCollector interface {
	Collect(ctx context.Context) (*collector.Batch, error)
}

// Scheduler runs the daily scan on a cron and serves chat commands.
type Scheduler struct {
	Cron         *cron.Cron
	Collector    BatchCollector
	Gate         *collector.Gate
	Orchestrator *scanner.Orchestrator
	Settings     *settings.Store
	Portfolio    *portfolio.Manager
	// Notifier may be nil when Telegram is not configured.
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Ctx      context.Context
	Now      func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col BatchCollector, gate *collector.Gate, orch *scanner.Orchestrator,
	st *settings.Store, pm *portfolio.Manager, n notifier.Notifier, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds()),
		Collector:    col,
		Gate:         gate,
		Orchestrator: orch,
		Settings:     st,
		Portfolio:    pm,
		Notifier:     n,
		Recorder:     rec,
		Ctx:          ctx,
		Now:          time.Now,
	}
}

// Register adds the daily scan task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunScan(s.Ctx); err != nil {
		log.Error().Err(err).Msg("daily scan")
	}
}

// RunScan collects data, grades it, reviews it against the portfolio,
// records and publishes the result. Gate errors (busy or cooling down) are
// returned without a result; every other outcome is reported through the
// result's market status.
func (s *Scheduler) RunScan(ctx context.Context) (*model.ScanResult, error) {
	release, err := s.Gate.Acquire()
	if err != nil {
		return nil, err
	}

	log.Info().Msg("running scan")
	batch, fetchErr := s.Collector.Collect(ctx)
	release(fetchErr)

	st := s.Settings.Get()
	in := scanner.Input{
		Equity:   s.Portfolio.Equity(),
		Settings: st,
		FetchErr: fetchErr,
	}
	if batch != nil {
		in.VIX = batch.VIX
		in.Snapshots = batch.Snapshots
		in.Indices = batch.Indices
		in.Excluded = batch.Excluded
	}
	res := s.Orchestrator.Run(in)

	prices := make(map[string]float64, len(res.Items))
	for _, it := range res.Items {
		prices[it.Ticker] = it.UsedData.Price
	}
	s.Portfolio.MarkPrices(prices)

	reviewed, alerts := portfolio.Review(res, s.Portfolio.Holdings(), st, s.now())

	scanID, err := s.Recorder.RecordScan(ctx, reviewed)
	if err != nil {
		log.Error().Err(err).Msg("record scan")
	}
	if err := s.Recorder.RecordNotifications(ctx, scanID, alerts); err != nil {
		log.Error().Err(err).Msg("record notifications")
	}

	s.trySend(ctx, notifier.FormatScanReport(reviewed))
	for _, a := range alerts {
		s.trySend(ctx, notifier.FormatNotification(a))
	}
	return reviewed, nil
}

// Cooldown reports how long new scans stay blocked after a quota error.
func (s *Scheduler) Cooldown() time.Duration {
	return s.Gate.Remaining()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/scan":
		if _, err := s.RunScan(ctx); err != nil {
			if errors.Is(err, collector.ErrCoolingDown) || errors.Is(err, collector.ErrBusy) {
				return fmt.Sprintf("⏳ %v", err)
			}
			return fmt.Sprintf("❌ scan failed: %v", err)
		}
		return ""
	case "/portfolio":
		return notifier.FormatPortfolio(s.Portfolio.GetState(), s.Portfolio.Summary())
	case "/settings":
		return notifier.FormatSettings(s.Settings.Get())
	case "/set":
		if len(fields) != 3 {
			return "usage: /set <field> <value>\nfields: " + strings.Join(settings.Fields(), ", ")
		}
		st, err := s.Settings.Set(fields[1], fields[2])
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return "✅ updated\n\n" + notifier.FormatSettings(st)
	case "/latest":
		res, err := s.Recorder.LatestScan(ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatScanReport(res)
	default:
		return helpText
	}
}

const helpText = "Commands:\n• /scan\n• /latest\n• /portfolio\n• /settings\n• /set <field> <value>"

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
