package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clipscribe/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check external tools and workspace before running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.Run(cmd.Context(), cfg)
			fmt.Fprintln(cmd.OutOrStdout(), renderPreflight(results))
			if !preflight.Ok(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
