package openocd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/rpcclient"
)

// FlashOptions configures a one-shot program/verify/reset invocation (spec §4.6).
type FlashOptions struct {
	ELF             string
	ResetOnly       bool
	CheckAgeSeconds int // 0 selects the default window of 300 seconds; the advisory check always runs unless ResetOnly.
}

// FlashReport is the stage-level detail the Flash Driver contributes to a
// Pipeline Result.
type FlashReport struct {
	Programmed bool
	Verified   bool
	Reset      bool
	AgeWarning string
}

const defaultCheckAgeSeconds = 300

// Flash runs the Flash Driver's one-shot flow: best-effort clear any prior
// holder of the debug probe, spawn the debug server with an inline
// program/verify/reset command, wait for exit, and classify the result
// (spec §4.6).
func Flash(ctx context.Context, cfg Config, opts FlashOptions, timeout time.Duration) (*FlashReport, error) {
	if err := ensureHardwareClear(ctx, cfg.Ports.TCL); err != nil {
		return nil, err
	}

	report := &FlashReport{}
	if opts.CheckAgeSeconds == 0 {
		opts.CheckAgeSeconds = defaultCheckAgeSeconds
	}
	if !opts.ResetOnly {
		if warning, err := checkArtifactAge(opts.ELF, opts.CheckAgeSeconds); err != nil {
			return nil, err
		} else {
			report.AgeWarning = warning
		}
	}

	cmd := "reset run; exit"
	if !opts.ResetOnly {
		cmd = fmt.Sprintf("program %s verify reset exit", opts.ELF)
	}
	cfg.PostInitCommands = []string{cmd}

	proc, err := Start(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exitCode, err := waitForExit(proc, timeout)
	if err != nil {
		return nil, err
	}

	switch exitCode {
	case 0:
		report.Reset = true
		if !opts.ResetOnly {
			report.Programmed = true
			report.Verified = true
		}
		return report, nil
	default:
		return report, result.NewError(result.KindProtocolViolation, fmt.Sprintf("debug server exited %d", exitCode), nil)
	}
}

func waitForExit(proc *Process, timeout time.Duration) (int, error) {
	done := make(chan error, 1)
	go func() { done <- proc.cmd.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return 0, nil
		}
		if exitErr, ok := asExitError(err); ok {
			return exitErr, nil
		}
		return -1, result.NewError(result.KindIoError, "debug server wait", err)
	case <-time.After(timeout):
		_ = proc.Stop(2 * time.Second)
		return 0, result.NewError(result.KindTimeout, "flash one-shot invocation", nil)
	}
}

func asExitError(err error) (int, bool) {
	type exitCoder interface{ ExitCode() int }
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode(), true
	}
	return 0, false
}

// ensureHardwareClear is the "exclusive holder" guard from spec §5: before
// spawning, best-effort-terminate any prior holder by port.
func ensureHardwareClear(ctx context.Context, tclPort int) error {
	if !IsRunning(tclPort) {
		return nil
	}
	c, err := rpcclient.Connect(ctx, "127.0.0.1", tclPort, 500*time.Millisecond)
	if err == nil {
		_, _ = c.Execute("shutdown", 500*time.Millisecond)
		c.Close()
	}
	time.Sleep(300 * time.Millisecond)
	if IsRunning(tclPort) {
		return result.NewError(result.KindIoError, fmt.Sprintf("port %d still held by a prior debug-server instance", tclPort), nil)
	}
	return nil
}

// checkArtifactAge returns a non-fatal advisory warning when elf's
// modification time exceeds maxAgeSeconds (spec §4.6 --check-age).
func checkArtifactAge(elf string, maxAgeSeconds int) (string, error) {
	info, err := os.Stat(elf)
	if err != nil {
		return "", result.NewError(result.KindNotFound, fmt.Sprintf("firmware artifact %s", elf), err)
	}
	age := time.Since(info.ModTime())
	if age > time.Duration(maxAgeSeconds)*time.Second {
		warning := fmt.Sprintf("firmware artifact is %s old, older than the %ds check-age window", age.Round(time.Second), maxAgeSeconds)
		slog.Warn("openocd.checkArtifactAge", "warning", warning)
		return warning, nil
	}
	return "", nil
}
