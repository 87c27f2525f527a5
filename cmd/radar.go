package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/homedash/internal/config"
	"github.com/okian/homedash/internal/domain/radar"
	"github.com/spf13/cobra"
)

func newRadarCmd() *cobra.Command {
	defaults := config.New(context.Background()).Radar
	var (
		frames  int
		step    time.Duration
		asJSON  bool
		atStamp string
	)
	cmd := &cobra.Command{
		Use:   "radar",
		Short: "Print the radar frame URLs for now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if atStamp != "" {
				t, err := time.Parse(time.RFC3339, atStamp)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = t
			}
			tmpl := radar.Templates{Image: defaults.ImageTemplate, Lightning: defaults.LightningTemplate}
			out := radar.Frames(now, frames, step, tmpl)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			for _, f := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", f.Timestamp.Format(time.RFC3339), f.ImageURL, f.LightningURL)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&frames, "frames", defaults.Frames, "number of frames")
	cmd.Flags().DurationVar(&step, "step", defaults.Step, "spacing between frames")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringVar(&atStamp, "at", "", "RFC3339 instant to use instead of now")
	return cmd
}
