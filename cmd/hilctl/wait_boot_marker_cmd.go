package main

import (
	"time"

	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/rtt"
)

// WaitBootMarkerCmd watches the RTT text channel for a boot-completion
// marker (spec §4.7, §6).
type WaitBootMarkerCmd struct {
	Marker  string `required:"" placeholder:"<text>" help:"marker substring to wait for"`
	Port    int    `default:"9090" placeholder:"<port>" help:"RTT text-channel TCP port"`
	Timeout int    `default:"15" placeholder:"<seconds>" help:"wait timeout"`
}

func (c *WaitBootMarkerCmd) Run(rc *Context) error {
	start := time.Now()
	res := rtt.WaitForBootMarker(rc.Context, "127.0.0.1", c.Port, c.Marker, time.Duration(c.Timeout)*time.Second)
	if !res.Found {
		r := result.Timeout("wait_boot_marker", start, res.Advisory)
		exitWith(rc, r)
	}
	exitWith(rc, result.Success("wait_boot_marker", start))
	return nil
}
