package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	dir        string
	pageURL    string
	topURL     string
	referrer   string
	windowName string
	parentURL  string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "phonelink",
		Short:         "Connect a phone number to the host location",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWidget(cmd, ctx)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.dir, "dir", "", "Directory holding .phonelink state (default: current directory)")
	pf.StringVar(&flags.pageURL, "page-url", "", "URL the host opened the widget with")
	pf.StringVar(&flags.topURL, "top-url", "", "URL of the host's top-level frame")
	pf.StringVar(&flags.referrer, "referrer", "", "Referring URL supplied by the host")
	pf.StringVar(&flags.windowName, "window-name", "", "Free-form window name supplied by the host")
	pf.StringVar(&flags.parentURL, "parent-url", "", "Endpoint the host listens on for location requests")

	rootCmd.AddCommand(newNumbersCommand(ctx))
	rootCmd.AddCommand(newConnectCommand(ctx))
	rootCmd.AddCommand(newLocationCommand(ctx))

	return rootCmd
}
