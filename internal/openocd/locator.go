// Package openocd spawns, supervises, and drives the debug-server process
// (OpenOCD or an API-compatible equivalent) that bridges the SWD probe to
// the TCL command port, the debug-stub port, and the RTT passthrough
// listeners (spec §4.1, §4.2, §4.6).
package openocd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/GurkeX/hil-host-core/internal/result"
)

// Location is the resolved debug-server binary and its script directory.
type Location struct {
	BinaryPath  string
	ScriptsPath string
}

const binaryName = "openocd"

// Locate resolves the debug-server binary and script directory by priority:
// an explicit path, the OPENOCD_PATH environment variable, the host PATH,
// then a known user-home install prefix (spec §4.1).
func Locate(explicitPath string) (Location, error) {
	tried := []string{}

	if explicitPath != "" {
		if loc, ok := tryBinary(explicitPath, &tried); ok {
			return loc, nil
		}
	}

	if envPath := os.Getenv("OPENOCD_PATH"); envPath != "" {
		if loc, ok := tryBinary(envPath, &tried); ok {
			return loc, nil
		}
	}

	if pathBin, err := exec.LookPath(binaryName); err == nil {
		if loc, ok := tryBinary(pathBin, &tried); ok {
			return loc, nil
		}
	} else {
		tried = append(tried, fmt.Sprintf("$PATH (%v)", err))
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".local", "openocd", "bin", binaryName)
		if loc, ok := tryBinary(candidate, &tried); ok {
			return loc, nil
		}
	}

	return Location{}, result.NewError(result.KindNotFound,
		fmt.Sprintf("debug-server binary not found, tried: %s", strings.Join(tried, "; ")), nil)
}

func tryBinary(path string, tried *[]string) (Location, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		*tried = append(*tried, path)
		return Location{}, false
	}
	scripts := scriptsDirFor(path)
	return Location{BinaryPath: path, ScriptsPath: scripts}, true
}

// scriptsDirFor derives the conventional scripts/ directory alongside a
// debug-server binary install: <prefix>/bin/openocd -> <prefix>/share/openocd/scripts.
func scriptsDirFor(binaryPath string) string {
	binDir := filepath.Dir(binaryPath)
	prefix := filepath.Dir(binDir)
	return filepath.Join(prefix, "share", "openocd", "scripts")
}
