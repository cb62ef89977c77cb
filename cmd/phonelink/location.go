package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/phonelink/internal/location"
)

func newLocationCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "location",
		Short: "Show the resolved host location and where it came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			defer ctx.close()

			res, err := rt.resolver(nil).Resolve(cmd.Context())
			if errors.Is(err, location.ErrUnresolved) {
				return fmt.Errorf("phonelink: location not detected: %w", err)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if isTerminal(out) {
				fmt.Fprintln(out, renderTable([]string{"Location", "Source"}, [][]string{{res.ID, res.Source}}, nil))
				return nil
			}
			fmt.Fprintf(out, "%s\t%s\n", res.ID, res.Source)
			return nil
		},
	}
}
