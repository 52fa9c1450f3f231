package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"AssetJudge/internal/model"
	"AssetJudge/internal/notifier"
	"AssetJudge/internal/portfolio"
	"AssetJudge/internal/scanner"
	"AssetJudge/internal/server"
)

var (
	scanInput  string
	scanOutput string
	scanNotify bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the result as JSON",
	Long: `Run a single scan. Without --input the configured data source is
queried live; with --input the batch in the given JSON file (vix, equity,
settings, snapshots, indices) is graded without any network access.

Examples:
  judge scan
  judge scan --input batch.json --output result.json
  judge scan --notify`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanInput, "input", "", "Grade a batch from this JSON file instead of fetching")
	scanCmd.Flags().StringVar(&scanOutput, "output", "", "Output file (default: stdout)")
	scanCmd.Flags().BoolVar(&scanNotify, "notify", false, "Send the report and alerts to Telegram")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var in scanner.Input
	if scanInput != "" {
		if in, err = readBatch(scanInput, a); err != nil {
			return err
		}
	} else {
		batch, fetchErr := a.Collector.Collect(ctx)
		in = scanner.Input{Equity: a.Portfolio.Equity(), Settings: a.Settings.Get(), FetchErr: fetchErr}
		if batch != nil {
			in.VIX, in.Snapshots, in.Indices, in.Excluded = batch.VIX, batch.Snapshots, batch.Indices, batch.Excluded
		}
	}

	res, alerts := portfolio.Review(a.Orchestrator.Run(in), a.Portfolio.Holdings(), in.Settings, a.Orchestrator.Now())
	if _, err := a.Recorder.RecordScan(ctx, res); err != nil {
		log.Warn().Err(err).Msg("record scan")
	}

	if scanNotify {
		n := a.notifier()
		if n == nil {
			return fmt.Errorf("--notify requires telegram.bot_token and telegram.chat_id")
		}
		if err := n.SendWithRetry(ctx, notifier.FormatScanReport(res), 3); err != nil {
			log.Error().Err(err).Msg("send report")
		}
		for _, al := range alerts {
			if err := n.SendWithRetry(ctx, notifier.FormatNotification(al), 3); err != nil {
				log.Error().Err(err).Msg("send alert")
			}
		}
	}
	return writeJSON(res, scanOutput)
}

func readBatch(path string, a *app) (scanner.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scanner.Input{}, fmt.Errorf("read batch: %w", err)
	}
	var req server.ScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return scanner.Input{}, fmt.Errorf("parse batch: %w", err)
	}
	if req.VIX == nil {
		return scanner.Input{}, fmt.Errorf("batch %s: vix is required", path)
	}
	in := scanner.Input{
		VIX:       *req.VIX,
		Equity:    a.Portfolio.Equity(),
		Settings:  a.Settings.Get(),
		Snapshots: req.Snapshots,
		Indices:   req.Indices,
	}
	if req.Equity != nil {
		in.Equity = *req.Equity
	}
	if req.Settings != nil {
		if err := a.Settings.Validate(*req.Settings); err != nil {
			return scanner.Input{}, err
		}
		in.Settings = *req.Settings
	}
	return in, nil
}

func writeJSON(res *model.ScanResult, path string) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
