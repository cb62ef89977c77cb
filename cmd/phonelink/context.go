package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/kingrea/phonelink/internal/config"
	"github.com/kingrea/phonelink/internal/location"
	"github.com/kingrea/phonelink/internal/logbook"
	"github.com/kingrea/phonelink/internal/logging"
	"github.com/kingrea/phonelink/internal/phoneapi"
	"github.com/kingrea/phonelink/internal/store"
)

// commandContext lazily builds the shared runtime for whichever command runs.
type commandContext struct {
	flags *rootFlags

	// interactive reports whether the widget can take over the terminal.
	interactive func() bool

	runtimeOnce sync.Once
	runtime     *runtime
	runtimeErr  error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{
		flags: flags,
		interactive: func() bool {
			return isTerminal(os.Stdin) && isTerminal(os.Stdout)
		},
	}
}

// runtime bundles the long-lived pieces every command shares.
type runtime struct {
	cfg         *config.Config
	logger      *logging.Logger
	logbook     *logbook.Logbook
	store       *store.Store
	httpClient  *http.Client
	interceptor *location.Interceptor
	api         *phoneapi.Client
}

func (c *commandContext) ensureRuntime() (*runtime, error) {
	c.runtimeOnce.Do(func() {
		c.runtime, c.runtimeErr = c.buildRuntime()
	})
	return c.runtime, c.runtimeErr
}

func (c *commandContext) buildRuntime() (*runtime, error) {
	baseDir, err := c.baseDir()
	if err != nil {
		return nil, err
	}
	if err := config.InitStateDir(baseDir); err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(baseDir)
	if err != nil {
		return nil, err
	}
	cfg.ApplyHostOverrides(config.HostConfig{
		PageURL:    strings.TrimSpace(c.flags.pageURL),
		TopURL:     strings.TrimSpace(c.flags.topURL),
		Referrer:   strings.TrimSpace(c.flags.referrer),
		WindowName: c.flags.windowName,
	}, strings.TrimSpace(c.flags.parentURL))

	logger, err := logging.New(baseDir)
	if err != nil {
		return nil, err
	}
	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "activity.log"))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	kv, err := store.Open(cfg.CachePath())
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	httpClient := &http.Client{}
	interceptor := location.NewInterceptor(nil)
	interceptor.Install(httpClient)

	api := phoneapi.NewClient(
		cfg.Project.API.BaseURL,
		cfg.Project.API.ListPath,
		cfg.Project.API.ConnectPath,
		phoneapi.WithHTTPClient(httpClient),
		phoneapi.WithLogger(logger),
		phoneapi.WithUserAgent("phonelink/"+version),
	)
	logger.Printf("phonelink %s started in %s", version, baseDir)
	return &runtime{
		cfg:         cfg,
		logger:      logger,
		logbook:     lb,
		store:       kv,
		httpClient:  httpClient,
		interceptor: interceptor,
		api:         api,
	}, nil
}

func (c *commandContext) baseDir() (string, error) {
	dir := strings.TrimSpace(c.flags.dir)
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("phonelink: working directory: %w", err)
		}
		return cwd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("phonelink: resolve --dir: %w", err)
	}
	return abs, nil
}

func (c *commandContext) close() {
	if c.runtime == nil {
		return
	}
	_ = c.runtime.store.Close()
	_ = c.runtime.logger.Close()
}

func (r *runtime) host() location.Host {
	h := r.cfg.Project.Host
	return location.Host{
		PageURL:    h.PageURL,
		TopURL:     h.TopURL,
		Referrer:   h.Referrer,
		WindowName: h.WindowName,
	}
}

// resolver builds the strategy chain. requester may be nil for headless
// commands, which cannot receive a reply.
func (r *runtime) resolver(requester location.Requester) *location.Resolver {
	return location.NewResolver(
		location.DefaultStrategies(r.host(), r.interceptor, r.store, requester),
		location.WithStore(r.store),
		location.WithLogger(r.logger),
	)
}

var errNoTerminal = errors.New("phonelink: the widget needs an interactive terminal; use `phonelink numbers` or `phonelink connect` when scripting")

func isTerminal(w any) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
