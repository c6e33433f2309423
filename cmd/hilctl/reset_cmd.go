package main

import (
	"time"

	"github.com/GurkeX/hil-host-core/internal/openocd"
	"github.com/GurkeX/hil-host-core/internal/preflight"
	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/rtt"
)

// ResetCmd resets the target and optionally waits for RTT readiness (spec §6).
type ResetCmd struct {
	WithRTT   bool `help:"wait for RTT channel readiness after reset"`
	Preflight bool `help:"run the pre-flight diagnostic before resetting"`
	Timeout   int  `default:"30" placeholder:"<seconds>" help:"reset/rtt wait timeout"`
}

func (c *ResetCmd) Run(rc *Context) error {
	start := time.Now()
	cfg, err := serverConfig(rc)
	if err != nil {
		exitWith(rc, result.FromError("reset", start, err))
	}

	stages := map[string]*result.Result{}
	order := []string{}

	if c.Preflight {
		order = append(order, "preflight")
		checks := preflight.Run(rc.Context, preflight.Options{TCLPort: cfg.Ports.TCL, ServerCfg: cfg})
		stages["preflight"] = result.WithChecks("preflight", start, checks)
		if stages["preflight"].Status != result.StatusSuccess {
			exitWith(rc, result.WithStages("reset", start, stages, order))
		}
	}

	order = append(order, "reset")
	resetStart := time.Now()
	_, err = openocd.Flash(rc.Context, cfg, openocd.FlashOptions{ResetOnly: true}, time.Duration(c.Timeout)*time.Second)
	stages["reset"] = result.FromError("reset", resetStart, err)

	if c.WithRTT && stages["reset"].Status == result.StatusSuccess {
		order = append(order, "rtt_ready")
		rttStart := time.Now()
		res := rtt.WaitForRTTReady(rc.Context, "127.0.0.1", cfg.Ports.TCL, time.Duration(c.Timeout)*time.Second)
		if res.Ready {
			stages["rtt_ready"] = result.Success("rtt_ready", rttStart)
		} else {
			stages["rtt_ready"] = result.Timeout("rtt_ready", rttStart, "RTT channels did not become ready")
		}
	}

	exitWith(rc, result.WithStages("reset", start, stages, order))
	return nil
}
