// Package config handles domlens configuration from YAML files.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level domlens configuration.
type Config struct {
	Browser  BrowserConfig   `yaml:"browser"`
	Assets   AssetsConfig    `yaml:"assets"`
	Fetch    FetchConfig     `yaml:"fetch"`
	Output   OutputConfig    `yaml:"output"`
	Defaults DefaultsConfig  `yaml:"defaults"`
	Rulesets []RulesetConfig `yaml:"rulesets"`
}

// BrowserConfig controls the Chrome connection used for live sessions.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"` // ws:// URL of a running Chrome; empty launches one
	Headful          bool     `yaml:"headful"`
	Stealth          bool     `yaml:"stealth"`
	ResourceBlocking []string `yaml:"resource_blocking"` // images | fonts | media | stylesheets
}

// AssetsConfig controls the local server that hands out the overlay
// stylesheet and drag script.
type AssetsConfig struct {
	Addr string `yaml:"addr"`
}

// FetchConfig controls HTTP fetching for static sessions.
type FetchConfig struct {
	UserAgent        string        `yaml:"user_agent"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
	Timeout          time.Duration `yaml:"timeout"`
	DenyPrivateHosts bool          `yaml:"deny_private_hosts"`
}

// OutputConfig controls where screenshots, reports, and rendered pages land.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultsConfig fills in what a marking request leaves unsaid.
type DefaultsConfig struct {
	Preset    string `yaml:"preset"`
	Class     string `yaml:"class"`
	Draggable bool   `yaml:"draggable"`
}

// RulesetConfig is a named marking pass. It either references a built-in
// preset by name or carries explicit rules; preset wins when both are set.
type RulesetConfig struct {
	Name      string       `yaml:"name"`
	Preset    string       `yaml:"preset"`
	Class     string       `yaml:"class"`
	Draggable bool         `yaml:"draggable"`
	Rules     []RuleConfig `yaml:"rules"`
}

// RuleConfig is one selector with optional conditions that narrow its
// matches.
type RuleConfig struct {
	Selector string       `yaml:"selector"`
	Name     string       `yaml:"name"`
	Note     string       `yaml:"note"`
	When     []WhenConfig `yaml:"when"`
}

// WhenConfig is a single match condition. Fields set within one entry
// must all hold; entries in a rule's when list must all hold.
type WhenConfig struct {
	AttrPresent string          `yaml:"attr_present"`
	AttrAbsent  string          `yaml:"attr_absent"`
	AttrEquals  *AttrEqualsPair `yaml:"attr_equals"`
	ParentTag   string          `yaml:"parent_tag"`
}

// AttrEqualsPair names an attribute and the exact value it must carry.
type AttrEqualsPair struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Default returns a configuration with every default applied and nothing
// else set.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Assets.Addr == "" {
		c.Assets.Addr = "127.0.0.1:8787"
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		c.Fetch.MaxBodyBytes = 10 << 20
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Defaults.Preset == "" {
		c.Defaults.Preset = "landmarks"
	}
	for i := range c.Rulesets {
		if c.Rulesets[i].Name == "" {
			c.Rulesets[i].Name = c.Rulesets[i].Preset
		}
	}
}
