// Package config loads the application configuration in three layers:
// built-in defaults, a YAML file, and VACAL_* environment variables. On
// first run the default configuration is written to disk so users have a
// template to edit.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
	yamlv3 "gopkg.in/yaml.v3"
)

// FeedConfig describes one ICS subscription; Name becomes the owner name
// of all events from the feed.
type FeedConfig struct {
	Name string `koanf:"name" yaml:"name"`
	URL  string `koanf:"url" yaml:"url"`
}

// SlackConfig holds delivery settings. Posting is skipped when Token or
// ChannelID is empty.
type SlackConfig struct {
	Token     string `koanf:"token" yaml:"token"`
	ChannelID string `koanf:"channel_id" yaml:"channel_id"`
	Title     string `koanf:"title" yaml:"title"`
	Comment   string `koanf:"comment" yaml:"comment"`
	// TimeoutSeconds bounds each Slack HTTP call.
	TimeoutSeconds int `koanf:"timeout_seconds" yaml:"timeout_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP address for the calendar page and artifacts.
	Listen string `koanf:"listen" yaml:"listen"`

	// Timezone is the IANA zone used to determine "today".
	Timezone string `koanf:"timezone" yaml:"timezone"`

	// WeekStart is "sunday" or "monday".
	WeekStart string `koanf:"week_start" yaml:"week_start"`

	// Mode selects the window shape: "month" or "rolling".
	Mode string `koanf:"mode" yaml:"mode"`
	// RollingWeeks is the total week count in rolling mode.
	RollingWeeks int `koanf:"rolling_weeks" yaml:"rolling_weeks"`
	// WeeksBefore is how many whole weeks precede the current week in
	// rolling mode.
	WeeksBefore int `koanf:"weeks_before" yaml:"weeks_before"`

	// DataPath is the vacation JSON file exported by the form collector.
	DataPath string `koanf:"data_path" yaml:"data_path"`
	// Feeds are optional ICS sources merged with the JSON data.
	Feeds []FeedConfig `koanf:"feeds" yaml:"feeds,omitempty"`
	// CacheDir backs the ICS fetcher's conditional-request cache.
	CacheDir string `koanf:"cache_dir" yaml:"cache_dir"`

	OutputSVG string `koanf:"output_svg" yaml:"output_svg"`
	OutputPNG string `koanf:"output_png" yaml:"output_png"`

	Width  int `koanf:"width" yaml:"width"`
	Height int `koanf:"height" yaml:"height"`

	// WeekdayLabels override the seven column headers, in grid order.
	WeekdayLabels []string `koanf:"weekday_labels" yaml:"weekday_labels,omitempty"`

	// Refresh is the cron schedule for re-rendering in serve mode.
	Refresh string `koanf:"refresh" yaml:"refresh"`

	Slack SlackConfig `koanf:"slack" yaml:"slack"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "UTC",
		WeekStart:    "sunday",
		Mode:         "month",
		RollingWeeks: 4,
		WeeksBefore:  1,
		DataPath:     "vacation_data.json",
		CacheDir:     "./cache",
		OutputSVG:    "calendar.svg",
		OutputPNG:    "calendar.png",
		Width:        1200,
		Height:       800,
		Refresh:      "0 9 * * *",
		Slack: SlackConfig{
			TimeoutSeconds: 30,
		},
	}
}

// Normalize fills missing or invalid values so partially filled configs
// still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.WeekStart {
	case "sunday", "monday":
	default:
		c.WeekStart = def.WeekStart
	}
	switch c.Mode {
	case "month", "rolling":
	default:
		c.Mode = def.Mode
	}
	if c.RollingWeeks <= 0 {
		c.RollingWeeks = def.RollingWeeks
	}
	if c.WeeksBefore < 0 || c.WeeksBefore >= c.RollingWeeks {
		c.WeeksBefore = def.WeeksBefore
	}
	if c.DataPath == "" {
		c.DataPath = def.DataPath
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.OutputSVG == "" {
		c.OutputSVG = def.OutputSVG
	}
	if c.OutputPNG == "" {
		c.OutputPNG = def.OutputPNG
	}
	if c.Width <= 0 {
		c.Width = def.Width
	}
	if c.Height <= 0 {
		c.Height = def.Height
	}
	if c.Refresh == "" {
		c.Refresh = def.Refresh
	}
	if c.Slack.TimeoutSeconds <= 0 {
		c.Slack.TimeoutSeconds = def.Slack.TimeoutSeconds
	}
}

// Load reads the configuration from path, layering defaults, the YAML file
// and VACAL_* environment variables. A missing file is created with the
// defaults (0600) so the first run leaves an editable template behind.
//
// Environment keys use "__" as the hierarchy separator, so
// VACAL_SLACK__TOKEN maps to slack.token while VACAL_WEEK_START stays
// week_start.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.WithField("path", path).Info("config file not found, writing defaults")
			if serr := Save(path, DefaultConfig()); serr != nil {
				log.WithField("path", path).WithError(serr).Warn("could not write default config")
			}
		} else {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: "VACAL_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "VACAL_"))
			return strings.ReplaceAll(key, "__", "."), value
		},
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg as YAML to path, atomically via a temp file + rename,
// with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".vacal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
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
