package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomharvest/cmd/dicomharvest/wizard"
	"github.com/mrsinham/dicomharvest/internal/config"
)

func newInitCmd(stdout io.Writer) *cobra.Command {
	var out, from string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := config.Default()
			if from != "" {
				loaded, err := config.Load(from, nil)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				base = loaded
			}

			saved, err := wizard.Run(out, base)
			if err != nil {
				return err
			}
			if saved {
				fmt.Fprintf(stdout, "Configuration saved to %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "dicomharvest.yaml", "Path of the configuration file to write")
	cmd.Flags().StringVar(&from, "from", "", "Start from an existing configuration file")
	return cmd
}
