package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sznuper/formprobe/internal/config"
	"github.com/sznuper/formprobe/internal/runner"
	"github.com/sznuper/formprobe/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Test all forms on a schedule",
	Long: "Runs every form on the configured cron schedule until interrupted. " +
		"The config file is watched and reloaded before the next run.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		sched, err := scheduler.New(cfg.Options.Schedule, logger, scheduler.WithLocation(loc))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var (
			mu      sync.Mutex
			current = cfg
			dirty   bool
		)

		if cfg.Path != "" {
			go func() {
				err := config.Watch(ctx, cfg.Path, logger, func() {
					mu.Lock()
					dirty = true
					mu.Unlock()
				})
				if err != nil {
					logger.Error("config watch stopped", "error", err)
				}
			}()
		}

		reload := func() *config.Config {
			mu.Lock()
			defer mu.Unlock()
			if !dirty {
				return current
			}
			dirty = false

			next, err := loadConfig(cmd)
			if err != nil {
				logger.Error("config reload failed, keeping previous config", "error", err)
				return current
			}
			if err := sched.Reschedule(next.Options.Schedule); err != nil {
				logger.Error("schedule not changed", "error", err)
			}
			logger.Info("config reloaded", "path", next.Path, "forms", len(next.Forms))
			current = next
			return current
		}

		return sched.Run(ctx, func(ctx context.Context) {
			cfg := reload()
			r, err := runner.New(cfg, logger)
			if err != nil {
				logger.Error("building runner", "error", err)
				return
			}
			if _, err := r.Execute(ctx); err != nil && !errors.Is(err, runner.ErrFormsFailed) {
				logger.Error("scheduled run failed", "error", err)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
