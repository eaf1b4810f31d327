// Package config loads planmcp settings from layered sources.
//
// Precedence, lowest to highest: defaults, the global user config, the
// project config, a project .env file, PLANMCP_* environment variables and
// finally command-line overrides. Config files are JSON with comments and
// trailing commas allowed.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/tailscale/hujson"
)

// ProjectFileName is the per-project config file. Its presence also marks
// a directory as a project root.
const ProjectFileName = ".planmcp.json"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PLANMCP_"

var (
	errConfigInvalid    = errors.New("invalid config")
	errConfigNotFound   = errors.New("config file not found")
	errBadLogLevel      = errors.New("log_level must be one of debug, info, warn, error")
	errBadRetention     = errors.New("backup_retention must be delete or keep")
	errBadSessionTTL    = errors.New("session_ttl must be a positive duration")
	errDataDirUndefined = errors.New("data_dir is empty and no home directory is available")
)

// Config holds the effective settings.
type Config struct {
	ProjectRoot     string        `json:"project_root,omitempty"`
	DataDir         string        `json:"data_dir"`
	LogLevel        string        `json:"log_level"`
	LogPretty       bool          `json:"log_pretty"`
	MetricsAddr     string        `json:"metrics_addr,omitempty"`
	SessionTTL      time.Duration `json:"-"`
	DefaultAuthor   string        `json:"default_author"`
	BackupRetention string        `json:"backup_retention"`
}

// Sources records which layers contributed.
type Sources struct {
	Global  string // global config path if loaded
	Project string // project config path if loaded
	DotEnv  string // .env path if loaded
}

// Overrides carries values set on the command line. Nil fields were not
// given.
type Overrides struct {
	ProjectRoot *string
	DataDir     *string
	LogLevel    *string
	LogPretty   *bool
	MetricsAddr *string
}

// LoadOptions controls Load.
type LoadOptions struct {
	// WorkDir is where the project config and .env are looked up.
	WorkDir string
	// ConfigPath is an explicit project config; it must exist when set.
	ConfigPath string
	// Env is the process environment in KEY=VALUE form.
	Env       []string
	Overrides Overrides
}

// layer is one config source. Pointer fields distinguish "unset" from
// zero values so booleans can be overridden to false.
type layer struct {
	ProjectRoot     *string `json:"project_root"`
	DataDir         *string `json:"data_dir"`
	LogLevel        *string `json:"log_level"`
	LogPretty       *bool   `json:"log_pretty"`
	MetricsAddr     *string `json:"metrics_addr"`
	SessionTTL      *string `json:"session_ttl"`
	DefaultAuthor   *string `json:"default_author"`
	BackupRetention *string `json:"backup_retention"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:         defaultDataDir(nil),
		LogLevel:        "info",
		SessionTTL:      30 * time.Minute,
		DefaultAuthor:   "planmcp",
		BackupRetention: "delete",
	}
}

// Load resolves the effective config.
func Load(opts LoadOptions) (Config, Sources, error) {
	cfg := DefaultConfig()
	cfg.DataDir = defaultDataDir(opts.Env)
	var sources Sources

	globalPath := globalConfigPath(opts.Env)
	if globalPath != "" {
		l, loaded, err := loadFile(globalPath, false)
		if err != nil {
			return Config{}, Sources{}, err
		}
		if loaded {
			sources.Global = globalPath
			if err := cfg.apply(l); err != nil {
				return Config{}, Sources{}, fmt.Errorf("%s: %w", globalPath, err)
			}
		}
	}

	projectPath := opts.ConfigPath
	mustExist := projectPath != ""
	if projectPath == "" && opts.WorkDir != "" {
		projectPath = filepath.Join(opts.WorkDir, ProjectFileName)
	}
	if projectPath != "" {
		l, loaded, err := loadFile(projectPath, mustExist)
		if err != nil {
			return Config{}, Sources{}, err
		}
		if loaded {
			sources.Project = projectPath
			if err := cfg.apply(l); err != nil {
				return Config{}, Sources{}, fmt.Errorf("%s: %w", projectPath, err)
			}
		}
	}

	env := envMap(opts.Env)
	if opts.WorkDir != "" {
		dotenvPath := filepath.Join(opts.WorkDir, ".env")
		if values, err := godotenv.Read(dotenvPath); err == nil {
			sources.DotEnv = dotenvPath
			for k, v := range values {
				// Real environment variables win over .env entries.
				if _, set := env[k]; !set {
					env[k] = v
				}
			}
		}
	}
	l, err := envLayer(env)
	if err != nil {
		return Config{}, Sources{}, err
	}
	if err := cfg.apply(l); err != nil {
		return Config{}, Sources{}, fmt.Errorf("environment: %w", err)
	}

	cfg.applyOverrides(opts.Overrides)

	if err := validate(cfg); err != nil {
		return Config{}, Sources{}, err
	}
	return cfg, sources, nil
}

func (c *Config) apply(l layer) error {
	if l.ProjectRoot != nil {
		c.ProjectRoot = *l.ProjectRoot
	}
	if l.DataDir != nil && *l.DataDir != "" {
		c.DataDir = *l.DataDir
	}
	if l.LogLevel != nil && *l.LogLevel != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(*l.LogLevel))
	}
	if l.LogPretty != nil {
		c.LogPretty = *l.LogPretty
	}
	if l.MetricsAddr != nil {
		c.MetricsAddr = *l.MetricsAddr
	}
	if l.SessionTTL != nil && *l.SessionTTL != "" {
		d, err := cast.ToDurationE(*l.SessionTTL)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %q", errBadSessionTTL, *l.SessionTTL)
		}
		c.SessionTTL = d
	}
	if l.DefaultAuthor != nil && *l.DefaultAuthor != "" {
		c.DefaultAuthor = *l.DefaultAuthor
	}
	if l.BackupRetention != nil && *l.BackupRetention != "" {
		c.BackupRetention = strings.ToLower(strings.TrimSpace(*l.BackupRetention))
	}
	return nil
}

func (c *Config) applyOverrides(o Overrides) {
	if o.ProjectRoot != nil {
		c.ProjectRoot = *o.ProjectRoot
	}
	if o.DataDir != nil && *o.DataDir != "" {
		c.DataDir = *o.DataDir
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		c.LogLevel = strings.ToLower(*o.LogLevel)
	}
	if o.LogPretty != nil {
		c.LogPretty = *o.LogPretty
	}
	if o.MetricsAddr != nil {
		c.MetricsAddr = *o.MetricsAddr
	}
}

func validate(c Config) error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %w (got %q)", errConfigInvalid, errBadLogLevel, c.LogLevel)
	}
	switch c.BackupRetention {
	case "delete", "keep":
	default:
		return fmt.Errorf("%w: %w (got %q)", errConfigInvalid, errBadRetention, c.BackupRetention)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: %w", errConfigInvalid, errDataDirUndefined)
	}
	return nil
}

// loadFile reads one JSONC config file. A missing file is not an error
// unless mustExist is set.
func loadFile(path string, mustExist bool) (layer, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return layer{}, false, nil
		}
		if os.IsNotExist(err) {
			return layer{}, false, fmt.Errorf("%w: %s", errConfigNotFound, path)
		}
		return layer{}, false, fmt.Errorf("reading config %s: %w", path, err)
	}
	l, err := parse(data)
	if err != nil {
		return layer{}, false, fmt.Errorf("%w: %s: %w", errConfigInvalid, path, err)
	}
	return l, true, nil
}

func parse(data []byte) (layer, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return layer{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	var l layer
	if err := json.Unmarshal(standardized, &l); err != nil {
		return layer{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return l, nil
}

func envLayer(env map[string]string) (layer, error) {
	var l layer
	str := func(key string) *string {
		if v, ok := env[EnvPrefix+key]; ok {
			return &v
		}
		return nil
	}
	l.ProjectRoot = str("PROJECT_ROOT")
	l.DataDir = str("DATA_DIR")
	l.LogLevel = str("LOG_LEVEL")
	l.MetricsAddr = str("METRICS_ADDR")
	l.SessionTTL = str("SESSION_TTL")
	l.DefaultAuthor = str("DEFAULT_AUTHOR")
	l.BackupRetention = str("BACKUP_RETENTION")
	if v := str("LOG_PRETTY"); v != nil && *v != "" {
		b, err := cast.ToBoolE(*v)
		if err != nil {
			return layer{}, fmt.Errorf("%w: %sLOG_PRETTY=%q is not a boolean", errConfigInvalid, EnvPrefix, *v)
		}
		l.LogPretty = &b
	}
	return l, nil
}

func envMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, e := range env {
		if k, v, ok := strings.Cut(e, "="); ok {
			m[k] = v
		}
	}
	return m
}

func lookup(env []string, key string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, key+"="); ok {
			return after
		}
	}
	return ""
}

// globalConfigPath is $XDG_CONFIG_HOME/planmcp/config.json, falling back to
// ~/.config/planmcp/config.json. Empty if neither can be determined.
func globalConfigPath(env []string) string {
	if xdg := lookup(env, "XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "planmcp", "config.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "planmcp", "config.json")
}

// defaultDataDir is $XDG_DATA_HOME/planmcp, falling back to ~/.planmcp.
func defaultDataDir(env []string) string {
	if xdg := lookup(env, "XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "planmcp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".planmcp")
}

// Format returns cfg as indented JSON.
func Format(cfg Config) (string, error) {
	out := struct {
		Config
		SessionTTL string `json:"session_ttl"`
	}{cfg, cfg.SessionTTL.String()}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}
	return string(b), nil
}

// FindProjectRoot walks up from start looking for a directory holding
// ProjectFileName or the planning folder. If none is found, start is
// returned and the caller decides what to do.
func FindProjectRoot(start string) string {
	current := start
	for {
		for _, marker := range []string{ProjectFileName, document.PlanningDir} {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return start
		}
		current = parent
	}
}
