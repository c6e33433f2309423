package main

import (
	"time"

	"github.com/GurkeX/hil-host-core/internal/preflight"
	"github.com/GurkeX/hil-host-core/internal/result"
)

// PreflightCmd runs the composite pre-flight diagnostic (spec §4.5, §6).
type PreflightCmd struct {
	ELF      string `placeholder:"<path>" help:"firmware ELF to validate"`
	CheckAge int    `default:"300" placeholder:"<seconds>" help:"artifact freshness window"`
}

func (c *PreflightCmd) Run(rc *Context) error {
	start := time.Now()
	cfg, err := serverConfig(rc)
	if err != nil {
		exitWith(rc, result.FromError("preflight", start, err))
	}

	checks := preflight.Run(rc.Context, preflight.Options{
		TCLPort:       cfg.Ports.TCL,
		ServerCfg:     cfg,
		ELF:           c.ELF,
		MaxAgeSeconds: c.CheckAge,
	})
	exitWith(rc, result.WithChecks("preflight", start, checks))
	return nil // unreachable; satisfies the kong.Runner Run(...) error signature.
}
