// Package config defines the on-disk settings file for hilctl: ports,
// binary paths, and timeouts that are tedious to repeat on every
// invocation. Grounded on the teacher CLI's kong.Configuration bootstrap
// (cmd/sand/main.go), here loading YAML instead of JSON with
// gopkg.in/yaml.v3 since the rest of the stack (token database comments, NDJSON logs) is
// already text-first.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GurkeX/hil-host-core/internal/openocd"
)

// Config is the full set of defaults a hilctl invocation may load from
// disk, overridable per-invocation by any CLI flag of the same name.
type Config struct {
	OpenOCDPath     string        `yaml:"openocd_path"`
	InterfaceCfg    string        `yaml:"interface_cfg"`
	TargetCfg       string        `yaml:"target_cfg"`
	Ports           openocd.Ports `yaml:"ports"`
	TokenDBPath     string        `yaml:"token_db_path"`
	HistoryDBPath   string        `yaml:"history_db_path"`
	OTLPEndpoint    string        `yaml:"otlp_endpoint"`
	StageTimeout    time.Duration `yaml:"stage_timeout"`
	CaptureDuration time.Duration `yaml:"capture_duration"`
	BootMarker      string        `yaml:"boot_marker"`
}

// Default returns the conventional defaults (spec §6 ports, plus the
// history store's default path under $XDG_STATE_HOME).
func Default() Config {
	return Config{
		Ports:           openocd.DefaultPorts(),
		HistoryDBPath:   defaultHistoryPath(),
		StageTimeout:    30 * time.Second,
		CaptureDuration: 10 * time.Second,
		BootMarker:      "Starting FreeRTOS scheduler",
	}
}

// Load reads and merges a YAML config file over Default(). A missing file
// is not an error; Default() alone is returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaultHistoryPath() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "hil", "history.db")
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "hil", "history.db")
}
