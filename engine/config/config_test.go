package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsAllDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if c.TickRateHz != DefaultTickRateHz {
		t.Fatalf("expected TickRateHz default %v, got %v", DefaultTickRateHz, c.TickRateHz)
	}
	if c.CatalogPath != "" {
		t.Fatal("expected CatalogPath to stay empty; it has no default")
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected an error for a nonexistent config path")
	}
}

func TestLoadParsesYAMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := "tick_rate_hz: 30\ncatalog_path: assets/catalog.json\nzoom_min: 0.5\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.TickRateHz != 30 {
		t.Fatalf("expected the explicit tick_rate_hz to override the default, got %v", c.TickRateHz)
	}
	if c.CatalogPath != "assets/catalog.json" {
		t.Fatalf("expected CatalogPath to be read from YAML, got %q", c.CatalogPath)
	}
	if c.ZoomMax != DefaultZoomMax {
		t.Fatalf("expected an unset zoom_max to fall back to its default, got %v", c.ZoomMax)
	}
}

func TestLoadMalformedYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: [this is not a number"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected malformed YAML to return an error")
	}
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	base := Config{}.WithDefaults()
	base.CatalogPath = "x.json"
	if err := base.Validate(); err != nil {
		t.Fatalf("expected a defaulted config with a catalog path to validate, got %v", err)
	}

	bad := base
	bad.TickRateHz = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected a zero tick rate to fail validation")
	}

	bad = base
	bad.ZoomMin = 2.0
	bad.ZoomMax = 1.0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected zoom_max <= zoom_min to fail validation")
	}

	bad = base
	bad.RetreatHPFraction = 1.5
	if err := bad.Validate(); err == nil {
		t.Fatal("expected an out-of-[0,1] retreat fraction to fail validation")
	}

	bad = base
	bad.CatalogPath = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("expected a missing catalog_path to fail validation")
	}
}
