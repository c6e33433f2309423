package main

import (
	"time"

	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/rtt"
)

// WaitRTTReadyCmd polls the debug server until it reports RTT channels or
// timeout elapses (spec §4.7, §6).
type WaitRTTReadyCmd struct {
	Timeout int `default:"15" placeholder:"<seconds>" help:"poll timeout"`
}

func (c *WaitRTTReadyCmd) Run(rc *Context) error {
	start := time.Now()
	cfg, err := serverConfig(rc)
	if err != nil {
		exitWith(rc, result.FromError("wait_rtt_ready", start, err))
	}

	res := rtt.WaitForRTTReady(rc.Context, "127.0.0.1", cfg.Ports.TCL, time.Duration(c.Timeout)*time.Second)
	if res.Error != "" {
		exitWith(rc, result.ErrorResult("wait_rtt_ready", start, errString(res.Error)))
	}
	if !res.Ready {
		exitWith(rc, result.Timeout("wait_rtt_ready", start, "debug server did not report RTT channels within the timeout"))
	}
	exitWith(rc, result.Success("wait_rtt_ready", start))
	return nil
}
