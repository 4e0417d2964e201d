// Package config reads and writes the single YAML configuration file
// described in §6, and resolves the config/state directory locations
// from environment overrides.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/irl-llc/impressionism/internal/errs"
)

// Indexing mirrors the `indexing.*` keys of §6.
type Indexing struct {
	Directories []string `yaml:"directories"`
	Patterns    []string `yaml:"patterns,omitempty"`
	Ignore      []string `yaml:"ignore,omitempty"`
}

// Logging mirrors the `logging.*` keys of §6. ToolUse is either "all",
// "none", or an explicit list of tool names; stored as a raw string list
// so both forms round-trip through YAML without a custom unmarshaler.
type Logging struct {
	ToolUse      []string `yaml:"tool_use"`
	ToolFields   []string `yaml:"tool_fields,omitempty"`
	EmbedToolUse bool     `yaml:"embed_tool_use"`
}

// Config is the whole configuration file.
type Config struct {
	ActiveRuleset string                    `yaml:"active_ruleset"`
	Parameters    map[string]any            `yaml:"parameters,omitempty"`
	Rulesets      map[string]map[string]any `yaml:"rulesets,omitempty"`
	Indexing      Indexing                  `yaml:"indexing"`
	Logging       Logging                   `yaml:"logging"`
}

// Default is what `init` writes when no configuration exists.
func Default() Config {
	return Config{
		ActiveRuleset: "builtin/default",
		Parameters:    map[string]any{"similarity_threshold": 0.5, "search_limit": 5},
		Indexing: Indexing{
			Directories: []string{"."},
			Patterns:    []string{"**/SKILL.md"},
			Ignore:      []string{"**/node_modules/**", "**/.git/**"},
		},
		Logging: Logging{
			ToolUse:      []string{"all"},
			ToolFields:   []string{"tool_name", "summary"},
			EmbedToolUse: false,
		},
	}
}

// ToolLoggingAll reports whether cfg.Logging.ToolUse is the "all" sentinel.
func (c Config) ToolLoggingAll() bool {
	return len(c.Logging.ToolUse) == 1 && c.Logging.ToolUse[0] == "all"
}

// ToolLoggingNone reports whether tool-event logging is disabled entirely.
func (c Config) ToolLoggingNone() bool {
	return len(c.Logging.ToolUse) == 0 || (len(c.Logging.ToolUse) == 1 && c.Logging.ToolUse[0] == "none")
}

// ShouldLogTool reports whether a named tool's events should be logged,
// per logging.tool_use (§6).
func (c Config) ShouldLogTool(name string) bool {
	if c.ToolLoggingNone() {
		return false
	}
	if c.ToolLoggingAll() {
		return true
	}
	for _, t := range c.Logging.ToolUse {
		if t == name {
			return true
		}
	}
	return false
}

// ParamsFor returns the parameter block for rulesetPath, merged over the
// global block (ruleset-specific keys win), the same merge the Policy
// Runner performs for get_param's fallback chain (§4.5.2, §4.6).
func (c Config) ParamsFor(rulesetPath string) map[string]any {
	out := make(map[string]any, len(c.Parameters))
	for k, v := range c.Parameters {
		out[k] = v
	}
	for k, v := range c.Rulesets[rulesetPath] {
		out[k] = v
	}
	return out
}

// Dirs resolves the config and state directories from environment
// overrides, falling back to the user's config directory (§6).
type Dirs struct {
	ConfigDir string
	StateDir  string
}

// ResolveDirs applies IMPRESSIONISM_CONFIG_DIR / IMPRESSIONISM_STATE_DIR.
func ResolveDirs() (Dirs, error) {
	configDir := os.Getenv("IMPRESSIONISM_CONFIG_DIR")
	if configDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Dirs{}, errs.Wrap(errs.KindConfig, "resolve_dirs", err)
		}
		configDir = filepath.Join(base, "impressionism")
	}
	stateDir := os.Getenv("IMPRESSIONISM_STATE_DIR")
	if stateDir == "" {
		stateDir = configDir
	}
	return Dirs{ConfigDir: configDir, StateDir: stateDir}, nil
}

// Path returns the configuration file's path under d.ConfigDir.
func (d Dirs) Path() string { return filepath.Join(d.ConfigDir, "config.yaml") }

// RulesDir is where rulesets live, per §6's on-disk layout.
func (d Dirs) RulesDir() string { return filepath.Join(d.ConfigDir, "rules") }

// CatalogDir is where the hybrid store lives, per §6's on-disk layout.
func (d Dirs) CatalogDir() string { return filepath.Join(d.StateDir, "catalog") }

// Load reads and parses the configuration file at d.Path(). A missing
// file is a ConfigError — callers should run `init` first.
func Load(d Dirs) (Config, error) {
	data, err := os.ReadFile(d.Path())
	if err != nil {
		return Config{}, errs.Wrap(errs.KindConfig, "load", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errs.Wrap(errs.KindConfig, "load", err)
	}
	return c, nil
}

// Save writes cfg to d.Path(), creating the config directory if absent.
// yaml.v3 marshals struct fields in declaration order, which keeps
// repeated Save calls byte-identical for unchanged Config values (the
// idempotent write→read law of §8).
func Save(d Dirs, cfg Config) error {
	if err := os.MkdirAll(d.ConfigDir, 0o755); err != nil {
		return errs.Wrap(errs.KindConfig, "save", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errs.Wrap(errs.KindConfig, "save", err)
	}
	if err := os.WriteFile(d.Path(), data, 0o644); err != nil {
		return errs.Wrap(errs.KindConfig, "save", err)
	}
	return nil
}

// Exists reports whether a configuration file is already present.
func Exists(d Dirs) bool {
	_, err := os.Stat(d.Path())
	return err == nil
}
