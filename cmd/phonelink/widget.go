package main

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/phonelink/internal/bridge"
	"github.com/kingrea/phonelink/internal/location"
	"github.com/kingrea/phonelink/internal/session"
	"github.com/kingrea/phonelink/internal/tui"
)

// runWidget opens the interactive widget with the bridge listening for
// location replies from the host.
func runWidget(cmd *cobra.Command, ctx *commandContext) error {
	if !ctx.interactive() {
		return errNoTerminal
	}
	rt, err := ctx.ensureRuntime()
	if err != nil {
		return err
	}
	defer ctx.close()

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}

	settings := bridge.SettingsFromConfig(rt.cfg)
	var (
		resolver *location.Resolver
		program  *tea.Program
	)
	server := bridge.NewServer(settings,
		bridge.WithLogger(rt.logger),
		bridge.WithObserver(rt.interceptor.Observe),
		bridge.WithHandler(locationHandler(runCtx, rememberFunc(func(ctx context.Context, id string) error {
			return resolver.Remember(ctx, id)
		}), func(msg tea.Msg) { program.Send(msg) }, rt.logger, rt.logbook)),
	)

	var requester location.Requester
	if settings.Enabled && settings.ParentURL != "" {
		parent := bridge.NewRequester(settings,
			bridge.RequesterWithHTTPClient(rt.httpClient),
			bridge.RequesterWithLogger(rt.logger),
			bridge.RequesterWithReplyTo(server.MessageURL),
		)
		// runs before ctx.close so no request outlives the runtime
		defer parent.Wait()
		requester = parent
	}
	resolver = rt.resolver(requester)

	notifications := rt.cfg.Project.Notifications
	app := tui.NewApp(session.New(), rt.api, resolver,
		tui.WithContext(runCtx),
		tui.WithLogbook(rt.logbook),
		tui.WithToastTTL(notifications.TTL),
		tui.WithSettleDelay(notifications.SettleDelay),
	)
	program = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(runCtx))

	if err := server.Start(runCtx); err != nil && !errors.Is(err, bridge.ErrDisabled) {
		// the widget still works from flags and the cache without the bridge
		rt.logger.Printf("bridge unavailable: %v", err)
		rt.logbook.Warn("Bridge unavailable: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && runCtx.Err() != nil {
		return runCtx.Err()
	}
	return err
}
