package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and list the forms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		source := cfg.Path
		if source == "" {
			source = "built-in defaults"
		}
		fmt.Printf("%s %s\n", paint(okStyle, "✓"), source)
		fmt.Printf("  Schedule: %s (%s)\n", cfg.Options.Schedule, cfg.Options.Timezone)

		for _, f := range cfg.Forms {
			d, err := f.Descriptor()
			if err != nil {
				return err
			}
			fmt.Printf("  %s %s [%s] %s\n", paint(headStyle, d.DisplayName()), paint(dimStyle, d.Name), d.Variant, d.URL)
		}

		var channels []string
		if cfg.Notify.WebhookURL != "" {
			channels = append(channels, "webhook")
		}
		if cfg.Notify.Email.Host != "" {
			channels = append(channels, "email")
		}
		if len(channels) == 0 {
			fmt.Println("  Notifications: none (failures only show in logs and the exit code)")
		} else {
			fmt.Printf("  Notifications: %v\n", channels)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
