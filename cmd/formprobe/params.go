package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sznuper/formprobe/internal/params"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print today's tracking parameters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		set := params.Today(time.Now, loc)
		for _, p := range set {
			fmt.Printf("%-13s %s\n", p.Key, p.Value)
		}
		fmt.Println()
		fmt.Println(set.Encode())

		for _, f := range cfg.Forms {
			u, err := set.Apply(f.URL)
			if err != nil {
				return err
			}
			fmt.Printf("\n%s\n  %s\n", paint(headStyle, f.Label), u)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}
