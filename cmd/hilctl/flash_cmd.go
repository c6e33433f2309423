package main

import (
	"os"
	"time"

	"github.com/GurkeX/hil-host-core/internal/openocd"
	"github.com/GurkeX/hil-host-core/internal/preflight"
	"github.com/GurkeX/hil-host-core/internal/result"
)

// FlashCmd programs, verifies, and resets the target (spec §4.6, §6). It
// is the CLI-layer wiring point for --preflight: internal/openocd/flash.go
// deliberately does not import internal/preflight to avoid a dependency
// cycle (preflight's probe_reachable check itself spawns a one-shot
// openocd.Start), so the two are composed here instead.
type FlashCmd struct {
	ELF       string `placeholder:"<path>" help:"firmware ELF to program"`
	ResetOnly bool   `help:"skip programming and verification, reset only"`
	CheckAge  int    `default:"300" placeholder:"<seconds>" help:"artifact freshness window"`
	Preflight bool   `help:"run the pre-flight diagnostic before flashing"`
	Timeout   int    `default:"60" placeholder:"<seconds>" help:"flash stage timeout"`
}

func (c *FlashCmd) Run(rc *Context) error {
	start := time.Now()
	cfg, err := serverConfig(rc)
	if err != nil {
		exitWith(rc, result.FromError("flash", start, err))
	}

	if c.Preflight {
		checks := preflight.Run(rc.Context, preflight.Options{
			TCLPort:       cfg.Ports.TCL,
			ServerCfg:     cfg,
			ELF:           c.ELF,
			MaxAgeSeconds: c.CheckAge,
		})
		pre := result.WithChecks("preflight", start, checks)
		if pre.Status != result.StatusSuccess {
			exitWith(rc, result.WithStages("flash", start, map[string]*result.Result{"preflight": pre}, []string{"preflight"}))
		}
	}

	flashStart := time.Now()
	_, err = openocd.Flash(rc.Context, cfg, openocd.FlashOptions{
		ELF:             c.ELF,
		ResetOnly:       c.ResetOnly,
		CheckAgeSeconds: c.CheckAge,
	}, time.Duration(c.Timeout)*time.Second)

	r := result.FromError("flash", flashStart, err)
	exitWith(rc, r)
	return nil
}

func exitWith(rc *Context, r *result.Result) {
	recordAndEmit(rc, r)
	os.Exit(r.ExitCode())
}
