// Package config loads the runtime's YAML-backed configuration document
// (spec §6): every recognized option, all optional, with the defaults
// spec.md specifies. Grounded on pthm-soup's go.mod, which pulls in
// gopkg.in/yaml.v3 for exactly this kind of struct-tagged config load;
// the teacher repo itself has no config file at all (ScreenWidth/TickRate
// are cmd/game/main.go constants), so this package's YAML idiom is
// adopted from the pack rather than adapted from the teacher.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is every recognized runtime option from spec §6, zero-valued
// fields meaning "use the default" until WithDefaults fills them in.
type Config struct {
	TickRateHz     float64 `yaml:"tick_rate_hz"`
	ViewportWidth  int     `yaml:"viewport_width"`
	ViewportHeight int     `yaml:"viewport_height"`

	MaxAtlasSize            int     `yaml:"max_atlas_size"`
	TextureUnitCap          int     `yaml:"texture_unit_cap"`
	UploadBudgetBytesPerFrame int   `yaml:"upload_budget_bytes_per_frame"`

	PathExpansionBudgetPerTick int `yaml:"path_expansion_budget_per_tick"`

	EdgeScrollThresholdPx float64 `yaml:"edge_scroll_threshold_px"`

	ZoomMin float64 `yaml:"zoom_min"`
	ZoomMax float64 `yaml:"zoom_max"`

	RetreatHPFraction float64 `yaml:"retreat_hp_fraction"`
	DebugPathfinding  bool    `yaml:"debug_pathfinding"`

	// CatalogPath and FramesDir are not named directly in spec §6's option
	// list but are required external-interface locations (spec §6 Asset
	// Catalog JSON / Sprite Frames) a real host must configure somewhere;
	// kept here rather than invented as flags or env vars, matching how
	// the rest of this struct already centralizes host-tunable paths.
	CatalogPath string `yaml:"catalog_path"`
	FramesDir   string `yaml:"frames_dir"`

	// DiagnosticsAddr, if non-empty, starts the websocket diagnostics
	// server (engine/diag) listening on this address (spec §9's sampled
	// counters stream). Empty disables it; hosts may always subscribe
	// their own diag.Sink to a diag.Bus instead.
	DiagnosticsAddr string `yaml:"diagnostics_addr"`
}

// Default values, per spec §6.
const (
	DefaultTickRateHz                  = 60.0
	DefaultMaxAtlasSize                = 2048
	DefaultTextureUnitCap              = 16
	DefaultUploadBudgetBytesPerFrame   = 4 * 1 << 20
	DefaultPathExpansionBudgetPerTick  = 20000
	DefaultEdgeScrollThresholdPx       = 50.0
	DefaultZoomMin                     = 0.25
	DefaultZoomMax                     = 4.0
	DefaultRetreatHPFraction           = 0.2
)

// WithDefaults returns a copy of c with every zero-valued field replaced
// by its spec-mandated default. Explicit zero values the user actually
// wants (e.g. debug_pathfinding: false) are indistinguishable from unset
// ones for bool/float fields that default to false/0 anyway, which is
// harmless here since no option defaults to a "meaningful zero".
func (c Config) WithDefaults() Config {
	if c.TickRateHz == 0 {
		c.TickRateHz = DefaultTickRateHz
	}
	if c.MaxAtlasSize == 0 {
		c.MaxAtlasSize = DefaultMaxAtlasSize
	}
	if c.TextureUnitCap == 0 {
		c.TextureUnitCap = DefaultTextureUnitCap
	}
	if c.UploadBudgetBytesPerFrame == 0 {
		c.UploadBudgetBytesPerFrame = DefaultUploadBudgetBytesPerFrame
	}
	if c.PathExpansionBudgetPerTick == 0 {
		c.PathExpansionBudgetPerTick = DefaultPathExpansionBudgetPerTick
	}
	if c.EdgeScrollThresholdPx == 0 {
		c.EdgeScrollThresholdPx = DefaultEdgeScrollThresholdPx
	}
	if c.ZoomMin == 0 {
		c.ZoomMin = DefaultZoomMin
	}
	if c.ZoomMax == 0 {
		c.ZoomMax = DefaultZoomMax
	}
	if c.RetreatHPFraction == 0 {
		c.RetreatHPFraction = DefaultRetreatHPFraction
	}
	return c
}

// Validate reports a fatal configuration error (spec §7's "invalid
// configuration values" init error) if any option is out of range.
func (c Config) Validate() error {
	if c.TickRateHz <= 0 {
		return fmt.Errorf("config: tick_rate_hz must be positive, got %v", c.TickRateHz)
	}
	if c.ZoomMin <= 0 || c.ZoomMax <= c.ZoomMin {
		return fmt.Errorf("config: zoom_min/zoom_max invalid (%v, %v)", c.ZoomMin, c.ZoomMax)
	}
	if c.RetreatHPFraction < 0 || c.RetreatHPFraction > 1 {
		return fmt.Errorf("config: retreat_hp_fraction must be in [0,1], got %v", c.RetreatHPFraction)
	}
	if c.MaxAtlasSize <= 0 || c.TextureUnitCap <= 0 {
		return fmt.Errorf("config: max_atlas_size and texture_unit_cap must be positive")
	}
	if c.CatalogPath == "" {
		return fmt.Errorf("config: catalog_path is required")
	}
	return nil
}

// Load reads a YAML config document from path and applies defaults; it
// does not call Validate. An empty path yields an all-defaults Config; a
// missing file or a malformed document is an error.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}.WithDefaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: malformed YAML in %s: %w", path, err)
	}
	return c.WithDefaults(), nil
}
