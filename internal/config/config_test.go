package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ports.TCL != 6666 {
		t.Fatalf("Ports.TCL = %d, want 6666 (default)", cfg.Ports.TCL)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hilctl.yaml")
	doc := "openocd_path: /opt/openocd/bin/openocd\nboot_marker: custom marker\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenOCDPath != "/opt/openocd/bin/openocd" {
		t.Fatalf("OpenOCDPath = %s, want override", cfg.OpenOCDPath)
	}
	if cfg.BootMarker != "custom marker" {
		t.Fatalf("BootMarker = %s, want override", cfg.BootMarker)
	}
	if cfg.Ports.TCL != 6666 {
		t.Fatal("untouched fields should keep their defaults")
	}
}
