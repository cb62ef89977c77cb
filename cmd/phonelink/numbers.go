package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kingrea/phonelink/internal/session"
)

func newNumbersCommand(ctx *commandContext) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "numbers",
		Short: "List the phone numbers attached to an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			defer ctx.close()

			numbers, err := rt.api.ListNumbers(cmd.Context(), token)
			if err != nil {
				rt.logbook.Error("Fetch failed: %v", err)
				return fmt.Errorf("phonelink: fetch numbers: %w", err)
			}
			rt.logbook.Info("Fetched %d phone numbers", len(numbers))

			sess := session.New()
			sess.SetContacts(numbers)
			out := cmd.OutOrStdout()
			if !isTerminal(out) {
				for _, c := range sess.Contacts() {
					fmt.Fprintln(out, c.PhoneNumber)
				}
				return nil
			}
			if len(numbers) == 0 {
				fmt.Fprintln(out, "No phone numbers on this token.")
				return nil
			}
			rows := make([][]string, 0, len(numbers))
			for _, c := range sess.Contacts() {
				rows = append(rows, []string{strconv.Itoa(c.ID), c.PhoneNumber})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Number"}, rows, []columnAlignment{alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API token (never stored)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
