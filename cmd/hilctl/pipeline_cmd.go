package main

import (
	"time"

	"github.com/GurkeX/hil-host-core/internal/openocd"
	"github.com/GurkeX/hil-host-core/internal/pipeline"
	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/tokendb"
)

// PipelineCmd runs the full build/flash/server-start/rtt-ready/capture/decode
// pipeline (spec §4.11, §6).
type PipelineCmd struct {
	SkipBuild      bool   `help:"skip the build stage"`
	SkipFlash      bool   `help:"skip the flash stage"`
	ELF            string `placeholder:"<path>" help:"firmware ELF to flash"`
	CSV            string `placeholder:"<path>" help:"token database CSV for the decode stage"`
	RTTDuration    int    `default:"10" placeholder:"<seconds>" help:"capture stage duration"`
	StageTimeout   int    `default:"30" placeholder:"<seconds>" help:"per-stage timeout"`
}

func (c *PipelineCmd) Run(rc *Context) error {
	cfg, err := serverConfig(rc)
	if err != nil {
		exitWith(rc, result.FromError("pipeline", time.Now(), err))
	}

	var db *tokendb.Database
	if c.CSV != "" {
		db, err = tokendb.Load(c.CSV)
		if err != nil {
			exitWith(rc, result.FromError("pipeline", time.Now(), err))
		}
	}

	r := pipeline.Run(rc.Context, pipeline.Options{
		SkipBuild:       c.SkipBuild,
		SkipFlash:       c.SkipFlash,
		ServerCfg:       cfg,
		FlashOpts:       openocd.FlashOptions{ELF: c.ELF},
		DB:              db,
		BootMarker:      rc.Config.BootMarker,
		CaptureDuration: time.Duration(c.RTTDuration) * time.Second,
		StageTimeout:    time.Duration(c.StageTimeout) * time.Second,
	})

	exitWith(rc, r)
	return nil
}
