package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FileName  = "memestickers.yaml"
	envPrefix = "MEMESTICKERS_"

	DefaultHubURL                = "http://localhost:8888"
	DefaultCommandPrefix         = "/meme"
	DefaultGitHubRawTemplate     = "https://raw.githubusercontent.com/{owner}/{repo}/{ref}/{path}"
	DefaultGitHubReleaseTemplate = "https://github.com/{owner}/{repo}/releases/download/{tag}/{filename}"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Colors holds hex colour strings. They are parsed on demand with ParseColor.
type Colors struct {
	Background string `yaml:"background"`
	Text       string `yaml:"text"`
	Accent     string `yaml:"accent"`
	Shadow     string `yaml:"shadow"`
	Outline    string `yaml:"outline"`
	GridBorder string `yaml:"grid_border"`
}

type Config struct {
	DataDir    string `yaml:"-"`
	PacksDir   string `yaml:"-"`
	ConfigPath string `yaml:"-"`
	TempDir    string `yaml:"-"`
	DBPath     string `yaml:"-"`
	LockPath   string `yaml:"-"`

	HubURL                string        `yaml:"hub_url"`
	HubIndexURL           string        `yaml:"hub_index_url"`
	GitHubRawTemplate     string        `yaml:"github_raw_template"`
	GitHubReleaseTemplate string        `yaml:"github_release_template"`
	HTTPTimeout           time.Duration `yaml:"http_timeout"`
	CacheTTL              time.Duration `yaml:"cache_ttl"`
	RetryAttempts         int           `yaml:"retry_attempts"`
	RetryDelay            time.Duration `yaml:"retry_delay"`
	RetryBackoff          float64       `yaml:"retry_backoff"`
	SessionTimeout        time.Duration `yaml:"session_timeout"`
	SessionSweepInterval  time.Duration `yaml:"session_sweep_interval"`
	AutoUpdate            bool          `yaml:"auto_update"`
	ForceUpdate           bool          `yaml:"force_update"`
	AutoUpdateInterval    time.Duration `yaml:"auto_update_interval"`
	MaxConcurrency        int           `yaml:"max_concurrency"`
	CommandPrefix         string        `yaml:"command_prefix"`
	Admins                []string      `yaml:"admins"`
	FontFamily            string        `yaml:"font_family"`
	FontSize              int           `yaml:"font_size"`
	Colors                Colors        `yaml:"colors"`
	SessionBackend        string        `yaml:"session_backend"`
	RedisAddr             string        `yaml:"redis_addr"`
	MetricsAddr           string        `yaml:"metrics_addr"`
	LogLevel              string        `yaml:"log_level"`
	LogFormat             string        `yaml:"log_format"`
}

func Defaults() Config {
	return Config{
		HubURL:                DefaultHubURL,
		GitHubRawTemplate:     DefaultGitHubRawTemplate,
		GitHubReleaseTemplate: DefaultGitHubReleaseTemplate,
		HTTPTimeout:           30 * time.Second,
		CacheTTL:              time.Hour,
		RetryAttempts:         3,
		RetryDelay:            1500 * time.Millisecond,
		RetryBackoff:          2.0,
		SessionTimeout:        5 * time.Minute,
		SessionSweepInterval:  30 * time.Second,
		AutoUpdateInterval:    time.Hour,
		MaxConcurrency:        4,
		CommandPrefix:         DefaultCommandPrefix,
		FontFamily:            "Noto Sans CJK SC",
		FontSize:              48,
		Colors: Colors{
			Background: "#FFFFFFFF",
			Text:       "#222222FF",
			Accent:     "#FF6600FF",
			Shadow:     "#00000080",
			Outline:    "#000000E6",
			GridBorder: "#505050FF",
		},
		SessionBackend: SessionBackendMemory,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// New returns defaults rooted at dataDir without reading any file.
func New(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	cfg := Defaults()
	cfg.setPaths(dataDir)
	return cfg, nil
}

// Load reads <dataDir>/memestickers.yaml when present, then applies
// MEMESTICKERS_* environment overrides.
func Load(dataDir string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	path := filepath.Join(cfg.DataDir, FileName)
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) setPaths(dataDir string) {
	c.DataDir = filepath.Clean(dataDir)
	c.PacksDir = filepath.Join(c.DataDir, "packs")
	c.ConfigPath = filepath.Join(c.DataDir, "config.json")
	c.TempDir = filepath.Join(c.DataDir, ".temp")
	c.DBPath = filepath.Join(c.DataDir, ".memestickers", "journal.db")
	c.LockPath = filepath.Join(c.DataDir, ".memestickers", "lock")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HubURL) == "" {
		return fmt.Errorf("hub_url cannot be empty")
	}
	if strings.TrimSpace(c.GitHubRawTemplate) == "" || strings.TrimSpace(c.GitHubReleaseTemplate) == "" {
		return fmt.Errorf("github templates cannot be empty")
	}
	if !strings.HasPrefix(c.CommandPrefix, "/") || strings.ContainsAny(c.CommandPrefix, " \t") {
		return fmt.Errorf("command_prefix must start with / and contain no spaces")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be >= 0")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be >= 1")
	}
	if c.FontSize < 1 {
		return fmt.Errorf("font_size must be >= 1")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout must be positive")
	}
	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("redis_addr is required for the redis session backend")
		}
	default:
		return fmt.Errorf("unknown session_backend: %s", c.SessionBackend)
	}
	for _, hex := range []string{c.Colors.Background, c.Colors.Text, c.Colors.Accent, c.Colors.Shadow, c.Colors.Outline, c.Colors.GridBorder} {
		if _, err := ParseColor(hex); err != nil {
			return err
		}
	}
	return nil
}

// IsAdmin reports whether userID may mutate packs. An empty admin list
// allows everyone.
func (c Config) IsAdmin(userID string) bool {
	if len(c.Admins) == 0 {
		return true
	}
	for _, admin := range c.Admins {
		if admin == userID {
			return true
		}
	}
	return false
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s must be an integer", envPrefix, name)
		}
		*dst = n
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("HUB_URL", &c.HubURL)
	str("HUB_INDEX_URL", &c.HubIndexURL)
	str("GITHUB_RAW_TEMPLATE", &c.GitHubRawTemplate)
	str("GITHUB_RELEASE_TEMPLATE", &c.GitHubReleaseTemplate)
	str("SESSION_BACKEND", &c.SessionBackend)
	str("REDIS_ADDR", &c.RedisAddr)
	str("METRICS_ADDR", &c.MetricsAddr)
	str("COMMAND_PREFIX", &c.CommandPrefix)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	if v, ok := lookup(envPrefix + "ADMINS"); ok {
		c.Admins = splitList(v)
	}

	for _, apply := range []func() error{
		func() error { return dur("HTTP_TIMEOUT", &c.HTTPTimeout) },
		func() error { return dur("CACHE_TTL", &c.CacheTTL) },
		func() error { return dur("RETRY_DELAY", &c.RetryDelay) },
		func() error { return dur("SESSION_TIMEOUT", &c.SessionTimeout) },
		func() error { return dur("SESSION_SWEEP_INTERVAL", &c.SessionSweepInterval) },
		func() error { return dur("AUTO_UPDATE_INTERVAL", &c.AutoUpdateInterval) },
		func() error { return integer("RETRY_ATTEMPTS", &c.RetryAttempts) },
		func() error { return integer("MAX_CONCURRENCY", &c.MaxConcurrency) },
		func() error { return boolean("AUTO_UPDATE", &c.AutoUpdate) },
		func() error { return boolean("FORCE_UPDATE", &c.ForceUpdate) },
	} {
		if err := apply(); err != nil {
			return err
		}
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseBool accepts true/1/yes/on and false/0/no/off, case-insensitive.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %q", v)
	}
}

// ParseColor reads #RGB, #RGBA, #RRGGBB or #RRGGBBAA. Missing alpha is opaque.
func ParseColor(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	switch len(s) {
	case 3, 4:
		expanded := make([]byte, 0, len(s)*2)
		for i := 0; i < len(s); i++ {
			expanded = append(expanded, s[i], s[i])
		}
		s = string(expanded)
	case 6, 8:
	default:
		return color.RGBA{}, fmt.Errorf("invalid colour: %q", hex)
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour: %q", hex)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
