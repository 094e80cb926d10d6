package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/mo"
	"gopkg.in/yaml.v3"

	"recurcal/internal/date"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// RuleConfig describes one named recurrence rule in YAML form.
type RuleConfig struct {
	// ID is used in URLs and as the export file name.
	ID          string `yaml:"id" json:"id"`
	Summary     string `yaml:"summary" json:"summary"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Start and End are YYYY-MM-DD. End is optional and inclusive.
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end,omitempty" json:"end,omitempty"`

	// Type is one of none (or once), daily, weekly, monthly, yearly.
	Type string `yaml:"type" json:"type"`
	// Interval defaults to 1 when omitted.
	Interval int `yaml:"interval,omitempty" json:"interval,omitempty"`
	// Weekdays lists day names (mon, tue, ...) for weekly rules.
	Weekdays []string `yaml:"weekdays,omitempty" json:"weekdays,omitempty"`
	// NthDay selects the day of month for monthly rules; -1 is the last day.
	NthDay int `yaml:"nth_day,omitempty" json:"nth_day,omitempty"`
}

// ExportConfig controls the scheduled .ics export.
type ExportConfig struct {
	// Dir receives one <id>.ics file per rule. Empty disables the export.
	Dir string `yaml:"dir" json:"dir"`
	// Schedule is a standard 5-field cron expression.
	Schedule string `yaml:"schedule" json:"schedule"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// WeekStart controls the first column of month grids. Supported values:
	//   - "sunday" (default)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Export ExportConfig `yaml:"export" json:"export"`

	// Rules is the list of configured recurrence rules.
	Rules []RuleConfig `yaml:"rules" json:"rules"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen   = "127.0.0.1:8080"
	defaultSchedule = "0 * * * *"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    defaultListen,
		WeekStart: "sunday",
		LogLevel:  "info",
		Export: ExportConfig{
			Dir:      "",
			Schedule: defaultSchedule,
		},
		Rules:     []RuleConfig{},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday":
		c.WeekStart = "monday"
	default:
		// Unknown or empty; fall back to sunday.
		c.WeekStart = "sunday"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Export.Schedule == "" {
		c.Export.Schedule = defaultSchedule
	}
	if c.Rules == nil {
		c.Rules = []RuleConfig{}
	}
	for i := range c.Rules {
		if c.Rules[i].Interval == 0 {
			c.Rules[i].Interval = 1
		}
	}
}

// FirstWeekday returns the configured first column of month grids.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Events converts every configured rule, failing on the first invalid one
// or on duplicate IDs.
func (c *Config) Events() ([]model.Event, error) {
	seen := make(map[string]struct{}, len(c.Rules))
	events := make([]model.Event, 0, len(c.Rules))
	for i, rc := range c.Rules {
		ev, err := rc.Event()
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if _, dup := seen[ev.ID]; dup {
			return nil, fmt.Errorf("rules[%d]: duplicate id %q", i, ev.ID)
		}
		seen[ev.ID] = struct{}{}
		events = append(events, ev)
	}
	return events, nil
}

// Event parses rc into a validated model.Event.
func (rc RuleConfig) Event() (model.Event, error) {
	rule, err := rc.Rule()
	if err != nil {
		return model.Event{}, fmt.Errorf("rule %q: %w", rc.ID, err)
	}
	ev := model.Event{
		ID:          rc.ID,
		Summary:     rc.Summary,
		Description: rc.Description,
		Rule:        rule,
	}
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Rule parses the recurrence fields of rc. A zero interval means 1.
func (rc RuleConfig) Rule() (recurrence.Rule, error) {
	start, err := date.Parse(rc.Start)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("start: %w", err)
	}
	typ, err := recurrence.ParseType(rc.Type)
	if err != nil {
		return recurrence.Rule{}, err
	}

	rule := recurrence.Rule{
		Start:    start,
		End:      mo.None[date.Date](),
		Type:     typ,
		Interval: rc.Interval,
		NthDay:   rc.NthDay,
	}
	if rule.Interval == 0 {
		rule.Interval = 1
	}
	if rc.End != "" {
		end, err := date.Parse(rc.End)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("end: %w", err)
		}
		rule.End = mo.Some(end)
	}
	for _, name := range rc.Weekdays {
		wd, err := recurrence.ParseWeekday(name)
		if err != nil {
			return recurrence.Rule{}, err
		}
		rule.Weekdays = rule.Weekdays.With(wd)
	}
	if typ == recurrence.Monthly && rule.NthDay == 0 {
		rule.NthDay = start.Day()
	}

	if err := rule.Validate(); err != nil {
		return recurrence.Rule{}, err
	}
	return rule, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory followed by a rename, leaving the file with 0600 permissions.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".recurcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
