// Package pipeline composes the other components into the end-to-end
// build → flash → server_start → rtt_ready → capture → decode flow (spec
// §4.11), grounded on the teacher's container-lifecycle orchestration
// (boxer.go) and using golang.org/x/sync/errgroup for the capture stage's
// two cooperative readers.
package pipeline

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GurkeX/hil-host-core/internal/logdecoder"
	"github.com/GurkeX/hil-host-core/internal/openocd"
	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/rtt"
	"github.com/GurkeX/hil-host-core/internal/tokendb"
	"github.com/GurkeX/hil-host-core/internal/trace"
)

// stageOrder is the fixed stage list from spec §4.11.
var stageOrder = []string{"build", "flash", "server_start", "rtt_ready", "capture", "decode"}

// Options configures a full pipeline run.
type Options struct {
	SkipBuild  bool
	SkipFlash  bool
	BuildCmd   []string // external build-container invocation; empty disables the stage.
	ServerCfg  openocd.Config
	FlashOpts  openocd.FlashOptions
	DB         *tokendb.Database
	BootMarker string

	CaptureDuration time.Duration
	StageTimeout    time.Duration
	LogPath         string // not read by Run: decoded records are not written to a file.
}

// CaptureReport is the capture stage's stage-level detail: the boot log
// text accumulated on the console channel and the binary records decoded.
// Run passes DecodeErr to the decode stage's Result; the other fields are
// not included in the returned Result.
type CaptureReport struct {
	BootMarkerFound bool
	BootLog         string
	RecordCount     int
	Records         []logdecoder.Record
	DecodeErr       error // a fatal decode failure (BuildIdMismatch, MalformedPacket); nil on a clean stream.
}

// Run executes every non-skipped stage in order, short-circuiting the rest
// with status = skipped on the first non-success stage (spec §4.11), and
// returns the aggregated Pipeline Result.
func Run(ctx context.Context, opts Options) *result.Result {
	start := time.Now()
	stages := make(map[string]*result.Result, len(stageOrder))

	failed := false
	var proc *openocd.Process
	defer func() {
		if proc != nil {
			_ = proc.Stop(5 * time.Second)
		}
	}()

	runStage := func(name string, timeout time.Duration, fn func(ctx context.Context) *result.Result) {
		if failed {
			stages[name] = result.Skipped(name)
			return
		}
		stageCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		stageCtx, endSpan := trace.StartStage(stageCtx, name)
		r := fn(stageCtx)
		var spanErr error
		if r.Status != result.StatusSuccess {
			spanErr = fmt.Errorf("%s: %s", r.Status, r.Error)
		}
		endSpan(string(r.Status), spanErr)
		stages[name] = r
		if r.Status != result.StatusSuccess {
			failed = true
		}
	}

	runStage("build", stageTimeout(opts), func(ctx context.Context) *result.Result {
		if opts.SkipBuild || len(opts.BuildCmd) == 0 {
			return result.Success("build", time.Now())
		}
		return runBuild(ctx, opts.BuildCmd)
	})

	runStage("flash", stageTimeout(opts), func(ctx context.Context) *result.Result {
		if opts.SkipFlash {
			return result.Success("flash", time.Now())
		}
		flashStart := time.Now()
		_, err := openocd.Flash(ctx, opts.ServerCfg, opts.FlashOpts, stageTimeout(opts))
		return result.FromError("flash", flashStart, err)
	})

	runStage("server_start", stageTimeout(opts), func(ctx context.Context) *result.Result {
		serverStart := time.Now()
		p, err := openocd.Start(ctx, opts.ServerCfg)
		if err != nil {
			return result.FromError("server_start", serverStart, err)
		}
		proc = p
		ready, err := proc.WaitUntilReady(ctx, stageTimeout(opts))
		if err != nil {
			return result.FromError("server_start", serverStart, err)
		}
		if !ready {
			return result.Timeout("server_start", serverStart, "debug server did not report readiness")
		}
		return result.Success("server_start", serverStart)
	})

	runStage("rtt_ready", stageTimeout(opts), func(ctx context.Context) *result.Result {
		rttStart := time.Now()
		res := rtt.WaitForRTTReady(ctx, "127.0.0.1", opts.ServerCfg.Ports.TCL, stageTimeout(opts))
		if res.Error != "" {
			return result.ErrorResult("rtt_ready", rttStart, fmt.Errorf("%s", res.Error))
		}
		if !res.Ready {
			// A fallback sleep lets a subsequent stage still try, rather
			// than failing the whole pipeline on a borderline timing race.
			time.Sleep(2 * time.Second)
		}
		return result.Success("rtt_ready", rttStart)
	})

	var capture CaptureReport
	runStage("capture", captureDuration(opts)+5*time.Second, func(ctx context.Context) *result.Result {
		captureStart := time.Now()
		rep, err := runCapture(ctx, opts)
		capture = rep
		return result.FromError("capture", captureStart, err)
	})

	runStage("decode", stageTimeout(opts), func(ctx context.Context) *result.Result {
		decodeStart := time.Now()
		return result.FromError("decode", decodeStart, capture.DecodeErr)
	})

	r := result.WithStages("pipeline", start, stages, stageOrder)
	return r
}

func stageTimeout(opts Options) time.Duration {
	if opts.StageTimeout > 0 {
		return opts.StageTimeout
	}
	return 30 * time.Second
}

// runBuild invokes the external build-container collaborator (spec §4.11
// diagram: "Build stage (external collaborator: build container)"). The
// pipeline treats it as an opaque subprocess; its exit code is the only
// signal consulted.
func runBuild(ctx context.Context, argv []string) *result.Result {
	start := time.Now()
	if len(argv) == 0 {
		return result.Success("build", start)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		return result.ErrorResult("build", start, err)
	}
	return result.Success("build", start)
}

// runCapture realizes the two-cooperative-readers contract (spec §5, §4.11):
// the text channel and binary channel are read concurrently for exactly
// opts.CaptureDuration, each reader canceled deterministically at that
// deadline, neither reader's failure terminating the other.
func runCapture(ctx context.Context, opts Options) (CaptureReport, error) {
	captureCtx, cancel := context.WithTimeout(ctx, captureDuration(opts))
	defer cancel()

	g, gctx := errgroup.WithContext(captureCtx)
	var report CaptureReport

	g.Go(func() error {
		res := rtt.WaitForBootMarker(gctx, "127.0.0.1", opts.ServerCfg.Ports.RTTText, opts.BootMarker, captureDuration(opts))
		report.BootMarkerFound = res.Found
		report.BootLog = res.BootLog
		return nil // a missing marker is advisory, never fails the capture stage.
	})

	g.Go(func() error {
		records, err := captureBinaryChannel(gctx, opts)
		report.Records = records
		report.RecordCount = len(records)
		report.DecodeErr = err
		return nil // a decode failure surfaces via the decode stage's Result, not a capture fault.
	})

	_ = g.Wait()
	return report, nil
}

func captureDuration(opts Options) time.Duration {
	if opts.CaptureDuration > 0 {
		return opts.CaptureDuration
	}
	return 10 * time.Second
}

func captureBinaryChannel(ctx context.Context, opts Options) ([]logdecoder.Record, error) {
	if opts.DB == nil {
		return nil, nil
	}
	addr := fmt.Sprintf("127.0.0.1:%d", opts.ServerCfg.Ports.RTTBinary)
	conn, err := logdecoder.Dial(ctx, addr, 10)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	dec := logdecoder.New(opts.DB)
	var all []logdecoder.Record
	buf := make([]byte, 4096)
	for {
		readDeadline := time.Now().Add(time.Second)
		if deadline, ok := ctx.Deadline(); ok && deadline.Before(readDeadline) {
			readDeadline = deadline
		}
		_ = conn.SetReadDeadline(readDeadline)
		n, rerr := conn.Read(buf)
		if n > 0 {
			recs, ferr := dec.Feed(buf[:n])
			all = append(all, recs...)
			if ferr != nil {
				return all, ferr
			}
		}
		if rerr != nil {
			if netErr, ok := rerr.(net.Error); ok && netErr.Timeout() {
				if ctx.Err() != nil {
					return all, nil
				}
				continue
			}
			return all, nil
		}
		if ctx.Err() != nil {
			return all, nil
		}
	}
}
