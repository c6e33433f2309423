package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/GurkeX/hil-host-core/internal/result"
)

// errString reifies a plain diagnostic message (e.g. from a poller's
// result struct) into an error, for components that report errors as
// strings rather than the error type.
func errString(msg string) error {
	return errors.New(msg)
}

// recordAndEmit persists r to the run-history store (best-effort; a
// history write failure is logged but never blocks the tool's own exit
// behavior) and writes the single Result document per spec §4.12/§6.
func recordAndEmit(rc *Context, r *result.Result) {
	if rc.History != nil {
		if _, err := rc.History.Record(rc.Context, r); err != nil {
			slog.WarnContext(rc.Context, "history.Record failed", "error", err)
		}
	}
	if err := result.Emit(os.Stdout, r, rc.JSON); err != nil {
		slog.ErrorContext(rc.Context, "result.Emit failed", "error", err)
	}
}
