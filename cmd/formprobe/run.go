package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sznuper/formprobe/internal/config"
	"github.com/sznuper/formprobe/internal/form"
	"github.com/sznuper/formprobe/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run [form_name]",
	Short: "Test forms once",
	Long: "Tests a single form by name, or all forms if no name is given, then sends the report. " +
		"Use --dry-run to skip sending notifications.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		notifySuccess, _ := cmd.Flags().GetBool("notify-success")
		logger := setupLogger()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		r, err := runner.New(cfg, logger,
			runner.WithDryRun(dryRun),
			runner.WithNotifySuccess(notifySuccess),
		)
		if err != nil {
			return err
		}

		var forms []config.Form
		if len(args) == 1 {
			f := r.FindForm(args[0])
			if f == nil {
				return fmt.Errorf("form %q not found in config", args[0])
			}
			forms = append(forms, *f)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rep, err := r.Execute(ctx, forms...)
		printReport(rep, dryRun)

		if errors.Is(err, runner.ErrFormsFailed) {
			stop()
			os.Exit(1)
		}
		return err
	},
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "run the forms without sending notifications")
	runCmd.Flags().Bool("notify-success", false, "send the success notification even for unattended runs")
	rootCmd.AddCommand(runCmd)
}

func printReport(rep runner.Report, dryRun bool) {
	for _, res := range rep.Results {
		if res.OK() {
			fmt.Printf("%s %s %s\n", paint(okStyle, "✓"), res.Label, paint(dimStyle, res.Duration.Round(10*time.Millisecond).String()))
			continue
		}

		fmt.Printf("%s %s\n", paint(failStyle, "✗"), res.Label)
		var fe *form.Error
		if errors.As(res.Err, &fe) {
			fmt.Printf("  Reached: %s\n", fe.State)
			fmt.Printf("  Error (%s): %s\n", fe.Kind, fe.Err)
		} else {
			fmt.Printf("  Error: %s\n", res.Err)
		}
	}

	if rep.Delivery != nil && len(rep.Delivery.Attempted) > 0 {
		label := "Notified"
		if dryRun {
			label = "Would notify"
		}
		fmt.Printf("%s: %s\n", label, strings.Join(rep.Delivery.Attempted, ", "))
		for _, de := range rep.Delivery.Errors {
			fmt.Printf("  %s %s\n", paint(failStyle, "!"), de)
		}
	}
	fmt.Println(paint(dimStyle, "run "+rep.RunID))
}
