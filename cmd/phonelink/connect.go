package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newConnectCommand(ctx *commandContext) *cobra.Command {
	var token, number string
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a phone number to the host location",
		RunE: func(cmd *cobra.Command, args []string) error {
			number = strings.TrimSpace(number)
			if number == "" {
				return errors.New("phonelink: --number is required")
			}
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			defer ctx.close()

			res, err := rt.resolver(nil).Resolve(cmd.Context())
			if err != nil {
				rt.logbook.Warn("Connect aborted: location unresolved")
				return fmt.Errorf("phonelink: location id missing, pass --page-url with ?locationId=...: %w", err)
			}
			if err := rt.api.Connect(cmd.Context(), token, res.ID, number); err != nil {
				rt.logbook.Error("Connect %s failed: %v", number, err)
				return err
			}
			rt.logbook.Info("Connected %s to location %s (%s)", number, res.ID, res.Source)
			fmt.Fprintf(cmd.OutOrStdout(), "User connected successfully! (%s)\n", number)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API token (never stored)")
	cmd.Flags().StringVar(&number, "number", "", "Phone number to connect, as listed by `phonelink numbers`")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}
