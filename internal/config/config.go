// internal/config/config.go
//
// This package handles configuration and the .phonelink directory structure.
// Every directory the widget is launched from gets a .phonelink/ folder that
// holds the config file, logs, and the persisted location cache.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// StateDirName is the name of the directory we create in the launch directory
	StateDirName = ".phonelink"

	defaultBaseURL          = "https://easifyqc67.zinops.com"
	defaultListPath         = "/api/external/get-phone-numbers"
	defaultConnectPath      = "/api/external/gh/connect-user"
	defaultBridgeHost       = "127.0.0.1"
	defaultBridgePort       = 8766
	defaultNotificationTTL  = 3 * time.Second
	defaultSettleDelay      = 1500 * time.Millisecond
	defaultParentRequestTTL = 5 * time.Second
)

const defaultProjectConfigYAML = `# phonelink configuration
version: 1

# Remote phone number service.
api:
  base_url: https://easifyqc67.zinops.com
  list_path: /api/external/get-phone-numbers
  connect_path: /api/external/gh/connect-user

# Embedding context supplied by the host. Leave empty and pass flags or
# PHONELINK_* environment variables when the host launches the widget.
host:
  page_url: ""
  top_url: ""
  referrer: ""
  window_name: ""

# Loopback bridge the host can use to push a location id to the widget.
bridge:
  enabled: true
  host: 127.0.0.1
  port: 8766
  # parent_url: http://127.0.0.1:9000/phonelink

notifications:
  ttl: 3s
`

// APIConfig points the widget at the remote phone number service.
type APIConfig struct {
	BaseURL     string `yaml:"base_url"`
	ListPath    string `yaml:"list_path"`
	ConnectPath string `yaml:"connect_path"`
}

// HostConfig describes the page the widget is embedded in.
type HostConfig struct {
	PageURL    string `yaml:"page_url"`
	TopURL     string `yaml:"top_url"`
	Referrer   string `yaml:"referrer"`
	WindowName string `yaml:"window_name"`
}

// BridgeConfig configures the loopback message bridge.
type BridgeConfig struct {
	Enabled   *bool         `yaml:"enabled,omitempty"`
	Host      string        `yaml:"host,omitempty"`
	Port      int           `yaml:"port,omitempty"`
	ParentURL string        `yaml:"parent_url,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// NotificationConfig controls toast behaviour.
type NotificationConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	SettleDelay time.Duration `yaml:"settle_delay,omitempty"`
}

// ProjectConfig models .phonelink/config.yaml.
type ProjectConfig struct {
	Version       int                `yaml:"version"`
	API           APIConfig          `yaml:"api"`
	Host          HostConfig         `yaml:"host"`
	Bridge        BridgeConfig       `yaml:"bridge"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// Config holds the runtime configuration for the widget.
type Config struct {
	// BaseDir is the directory the widget was launched from
	BaseDir string

	// StateDir is BaseDir/.phonelink
	StateDir string

	Project ProjectConfig
}

// InitStateDir creates the .phonelink directory structure in the given directory.
//
// Structure created:
// .phonelink/
// ├── config.yaml
// ├── logs/     <- phonelink.log and activity.log
// └── state/    <- cache.db (persisted location id)
func InitStateDir(baseDir string) error {
	stateDir := filepath.Join(baseDir, StateDirName)
	dirs := []string{
		filepath.Join(stateDir, "logs"),
		filepath.Join(stateDir, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(stateDir, "config.yaml"))
}

// NewConfig loads config.yaml from baseDir/.phonelink and applies
// environment overrides on top of it.
func NewConfig(baseDir string) (*Config, error) {
	cfg := &Config{
		BaseDir:  baseDir,
		StateDir: filepath.Join(baseDir, StateDirName),
		Project:  defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.normalize()
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// CacheDir returns the path to the state directory holding the cache
func (c *Config) CacheDir() string {
	return filepath.Join(c.StateDir, "state")
}

// CachePath returns the SQLite file backing the location cache.
func (c *Config) CachePath() string {
	return filepath.Join(c.CacheDir(), "cache.db")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// BridgeEnabled reports whether the loopback bridge should be started.
func (c *Config) BridgeEnabled() bool {
	if c.Project.Bridge.Enabled == nil {
		return true
	}
	return *c.Project.Bridge.Enabled
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	c.Project = parsed
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		API: APIConfig{
			BaseURL:     defaultBaseURL,
			ListPath:    defaultListPath,
			ConnectPath: defaultConnectPath,
		},
		Bridge: BridgeConfig{
			Host:    defaultBridgeHost,
			Port:    defaultBridgePort,
			Timeout: defaultParentRequestTTL,
		},
		Notifications: NotificationConfig{
			TTL:         defaultNotificationTTL,
			SettleDelay: defaultSettleDelay,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Notifications.TTL <= 0 {
		pc.Notifications.TTL = defaultNotificationTTL
	}
	if pc.Notifications.SettleDelay <= 0 {
		pc.Notifications.SettleDelay = defaultSettleDelay
	}
	if pc.Bridge.Timeout <= 0 {
		pc.Bridge.Timeout = defaultParentRequestTTL
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"PHONELINK_API_BASE_URL", &pc.API.BaseURL},
		{"PHONELINK_PAGE_URL", &pc.Host.PageURL},
		{"PHONELINK_TOP_URL", &pc.Host.TopURL},
		{"PHONELINK_REFERRER", &pc.Host.Referrer},
		{"PHONELINK_WINDOW_NAME", &pc.Host.WindowName},
		{"PHONELINK_PARENT_URL", &pc.Bridge.ParentURL},
		{"PHONELINK_BRIDGE_HOST", &pc.Bridge.Host},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.env); ok && strings.TrimSpace(value) != "" {
			*o.target = value
		}
	}
	if value := strings.TrimSpace(os.Getenv("PHONELINK_BRIDGE_ENABLED")); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			pc.Bridge.Enabled = &enabled
		}
	}
	if value := strings.TrimSpace(os.Getenv("PHONELINK_BRIDGE_PORT")); value != "" {
		if port, err := strconv.Atoi(value); err == nil && isValidPort(port) {
			pc.Bridge.Port = port
		}
	}
}

// ApplyHostOverrides lets command-line flags win over file and env values.
// Empty values leave the existing setting untouched.
func (c *Config) ApplyHostOverrides(host HostConfig, parentURL string) {
	if host.PageURL != "" {
		c.Project.Host.PageURL = host.PageURL
	}
	if host.TopURL != "" {
		c.Project.Host.TopURL = host.TopURL
	}
	if host.Referrer != "" {
		c.Project.Host.Referrer = host.Referrer
	}
	if host.WindowName != "" {
		c.Project.Host.WindowName = host.WindowName
	}
	if parentURL != "" {
		c.Project.Bridge.ParentURL = parentURL
	}
	c.Project.normalize()
}

func (pc *ProjectConfig) normalize() {
	pc.API.BaseURL = strings.TrimRight(strings.TrimSpace(pc.API.BaseURL), "/")
	if pc.API.BaseURL == "" {
		pc.API.BaseURL = defaultBaseURL
	}
	pc.API.ListPath = normalizePath(pc.API.ListPath, defaultListPath)
	pc.API.ConnectPath = normalizePath(pc.API.ConnectPath, defaultConnectPath)
	pc.Host.PageURL = strings.TrimSpace(pc.Host.PageURL)
	pc.Host.TopURL = strings.TrimSpace(pc.Host.TopURL)
	pc.Host.Referrer = strings.TrimSpace(pc.Host.Referrer)
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
	if pc.Bridge.Host == "" {
		pc.Bridge.Host = defaultBridgeHost
	}
	if !isValidPort(pc.Bridge.Port) {
		pc.Bridge.Port = defaultBridgePort
	}
	pc.Bridge.ParentURL = strings.TrimSpace(pc.Bridge.ParentURL)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateAbsoluteURL("api.base_url", pc.API.BaseURL); err != nil {
		return err
	}
	if pc.Bridge.ParentURL != "" {
		if err := validateAbsoluteURL("bridge.parent_url", pc.Bridge.ParentURL); err != nil {
			return err
		}
	}
	return nil
}

func validateAbsoluteURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}

func normalizePath(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}
