// Package preflight implements the composite pre-flight diagnostic (spec
// §4.5): a table of named checks, grounded on the teacher CLI's
// diagnosticCheck/diagnosticChecks pattern for prerequisite verification,
// retargeted from macOS/container prerequisites to debug-probe reachability.
package preflight

import (
	"context"
	"debug/elf"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/GurkeX/hil-host-core/internal/openocd"
	"github.com/GurkeX/hil-host-core/internal/result"
)

// Options configures which checks run.
type Options struct {
	TCLPort       int
	ServerCfg     openocd.Config
	ELF           string
	MaxAgeSeconds int // 0 disables the artifact_valid age window.
}

type check struct {
	ID          string
	Description string
	Advisory    bool
	Run         func(ctx context.Context, opts Options) error
}

var checks = []check{
	{
		ID:          "server_clear",
		Description: "nothing is currently bound to the RPC port",
		Advisory:    true,
		Run: func(ctx context.Context, opts Options) error {
			if openocd.IsRunning(opts.TCLPort) {
				return fmt.Errorf("port %d is already held by a debug-server instance", opts.TCLPort)
			}
			return nil
		},
	},
	{
		ID:          "probe_reachable",
		Description: "the debug server can initialize the target and list its cores",
		Run: func(ctx context.Context, opts Options) error {
			cfg := opts.ServerCfg
			cfg.PostInitCommands = []string{"exit"}
			proc, err := openocd.Start(ctx, cfg)
			if err != nil {
				return fmt.Errorf("spawning one-shot probe check: %w", err)
			}
			ready, err := proc.WaitUntilReady(ctx, 5*time.Second)
			_ = proc.Stop(2 * time.Second)
			if err != nil {
				return fmt.Errorf("probe check: %w", err)
			}
			if !ready {
				return fmt.Errorf("debug server did not report readiness within the probe window")
			}
			return nil
		},
	},
	{
		ID:          "artifact_valid",
		Description: "the firmware file exists, is a readable ELF, and (if requested) is fresh",
		Run: func(ctx context.Context, opts Options) error {
			if opts.ELF == "" {
				return nil
			}
			f, err := elf.Open(opts.ELF)
			if err != nil {
				return fmt.Errorf("not a readable ELF image: %w", err)
			}
			defer f.Close()

			if opts.MaxAgeSeconds > 0 {
				info, statErr := os.Stat(opts.ELF)
				if statErr != nil {
					return fmt.Errorf("stat firmware artifact: %w", statErr)
				}
				if age := time.Since(info.ModTime()); age > time.Duration(opts.MaxAgeSeconds)*time.Second {
					return fmt.Errorf("artifact is %s old, exceeds the %ds freshness window", age.Round(time.Second), opts.MaxAgeSeconds)
				}
			}
			return nil
		},
	},
}

// Run executes every check against opts and returns the composite report's
// checks map; artifact_valid is left out when opts.ELF is empty. The overall
// status (pass iff every non-advisory check passes, spec §4.5) is derived
// from that map by result.WithChecks.
func Run(ctx context.Context, opts Options) map[string]result.Check {
	out := make(map[string]result.Check, len(checks))
	for _, c := range checks {
		if c.ID == "artifact_valid" && opts.ELF == "" {
			continue
		}
		err := c.Run(ctx, opts)
		rc := result.Check{Pass: err == nil, Advisory: c.Advisory}
		if err != nil {
			rc.Detail = err.Error()
			slog.ErrorContext(ctx, "preflight check failed", "id", c.ID, "error", err)
		} else {
			rc.Detail = c.Description
			slog.InfoContext(ctx, "preflight check passed", "id", c.ID)
		}
		out[c.ID] = rc
	}
	return out
}
