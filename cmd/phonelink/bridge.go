package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/phonelink/internal/bridge"
	"github.com/kingrea/phonelink/internal/location"
	"github.com/kingrea/phonelink/internal/logbook"
	"github.com/kingrea/phonelink/internal/tui"
)

type locationRememberer interface {
	Remember(ctx context.Context, id string) error
}

type printfLogger interface {
	Printf(format string, args ...any)
}

// locationHandler hands a location the host pushed to the running widget.
// A cache write failure is logged and the id still reaches the session,
// since the parent answered and only the disk is unhappy.
func locationHandler(ctx context.Context, remember locationRememberer, send func(tea.Msg), logger printfLogger, lb *logbook.Logbook) bridge.MessageHandler {
	return bridge.MessageHandlerFunc(func(m bridge.Message) error {
		if !location.Valid(m.LocationID) {
			return fmt.Errorf("location id %q is not usable", m.LocationID)
		}
		if remember != nil {
			if err := remember.Remember(ctx, m.LocationID); err != nil {
				if logger != nil {
					logger.Printf("bridge: caching location failed: %v", err)
				}
				if lb != nil {
					lb.Warn("Could not cache location %s: %v", m.LocationID, err)
				}
			}
		}
		if lb != nil {
			lb.Info("Host sent location %s", m.LocationID)
		}
		if send != nil {
			send(tui.LocationReceivedMsg{ID: m.LocationID})
		}
		return nil
	})
}

type rememberFunc func(ctx context.Context, id string) error

func (f rememberFunc) Remember(ctx context.Context, id string) error {
	return f(ctx, id)
}
