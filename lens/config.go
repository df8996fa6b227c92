package lens

import (
	"github.com/hazyhaar/domlens/lens/internal/config"
)

// Config is the top-level domlens configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls the Chrome connection for live sessions.
type BrowserConfig = config.BrowserConfig

// AssetsConfig controls the overlay asset server.
type AssetsConfig = config.AssetsConfig

// FetchConfig controls HTTP fetching for static sessions.
type FetchConfig = config.FetchConfig

// OutputConfig controls where artifacts are written.
type OutputConfig = config.OutputConfig

// DefaultsConfig fills in what a marking request leaves unsaid.
type DefaultsConfig = config.DefaultsConfig

// RulesetConfig is a named marking pass.
type RulesetConfig = config.RulesetConfig

// RuleConfig is one selector with optional conditions.
type RuleConfig = config.RuleConfig

// WhenConfig is a single match condition.
type WhenConfig = config.WhenConfig

// AttrEqualsPair names an attribute and the value it must carry.
type AttrEqualsPair = config.AttrEqualsPair

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
