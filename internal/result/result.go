// Package result defines the single machine-readable document every host
// tool emits: one JSON object describing status, timing, and (for
// composites) per-stage and per-check detail.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/term"
)

// Status is the outcome of a tool invocation or pipeline stage.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
	StatusSkipped Status = "skipped"
)

// Check is one named sub-check of a composite diagnostic (§4.5).
type Check struct {
	Pass     bool   `json:"pass"`
	Detail   string `json:"detail"`
	Advisory bool   `json:"advisory,omitempty"`
}

// Result is the uniform document shape shared by every component (§4.12).
type Result struct {
	Status     Status             `json:"status"`
	Tool       string             `json:"tool"`
	DurationMs int64              `json:"duration_ms"`
	Stages     map[string]*Result `json:"stages,omitempty"`
	Checks     map[string]Check   `json:"checks,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Success builds a StatusSuccess result for tool, timed since start.
func Success(tool string, start time.Time) *Result {
	return &Result{Status: StatusSuccess, Tool: tool, DurationMs: elapsedMs(start)}
}

// Failure builds a StatusFailure result: a well-defined negative outcome,
// not an unexpected fault.
func Failure(tool string, start time.Time, detail string) *Result {
	return &Result{Status: StatusFailure, Tool: tool, DurationMs: elapsedMs(start), Error: detail}
}

// ErrorResult builds a StatusError result: an unexpected fault.
func ErrorResult(tool string, start time.Time, err error) *Result {
	return &Result{Status: StatusError, Tool: tool, DurationMs: elapsedMs(start), Error: err.Error()}
}

// Timeout builds a StatusTimeout result: a bounded wait expired.
func Timeout(tool string, start time.Time, detail string) *Result {
	return &Result{Status: StatusTimeout, Tool: tool, DurationMs: elapsedMs(start), Error: detail}
}

// Skipped builds a StatusSkipped stage result, used when a prior stage's
// non-success short-circuits the rest of a pipeline.
func Skipped(tool string) *Result {
	return &Result{Status: StatusSkipped, Tool: tool}
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// WithStages attaches per-stage sub-results to a composite result and
// derives the overall status: success iff every stage succeeded, else the
// status of the first stage that did not.
func WithStages(tool string, start time.Time, stages map[string]*Result, order []string) *Result {
	r := &Result{Tool: tool, DurationMs: elapsedMs(start), Stages: stages, Status: StatusSuccess}
	for _, name := range order {
		s, ok := stages[name]
		if !ok {
			continue
		}
		if s.Status != StatusSuccess {
			r.Status = s.Status
			break
		}
	}
	return r
}

// WithChecks attaches a Pre-Flight Report's checks and derives overall
// status: pass (StatusSuccess) iff every non-advisory check passed.
func WithChecks(tool string, start time.Time, checks map[string]Check) *Result {
	r := &Result{Tool: tool, DurationMs: elapsedMs(start), Checks: checks, Status: StatusSuccess}
	for _, c := range checks {
		if !c.Pass && !c.Advisory {
			r.Status = StatusFailure
			break
		}
	}
	return r
}

// Kind names a category of error from the taxonomy in spec §7.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindPreFlightFail     Kind = "PreFlightFail"
	KindTimeout           Kind = "Timeout"
	KindProtocolViolation Kind = "ProtocolViolation"
	KindBuildIdMismatch   Kind = "BuildIdMismatch"
	KindIoError           Kind = "IoError"
	KindCancelled         Kind = "Cancelled"
)

// Error is a typed error carrying one of the Kind values above, so a stage
// boundary can reify it into a Result without string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err (which may be nil) as a typed Error of the given kind.
func NewError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// status maps a Kind to the Status it must surface as, per spec §7.
func (k Kind) status() Status {
	switch k {
	case KindPreFlightFail, KindBuildIdMismatch:
		return StatusFailure
	case KindTimeout:
		return StatusTimeout
	default:
		return StatusError
	}
}

// ExitCode returns the process exit code a KindBuildIdMismatch carries (2,
// per spec §6 decode_log), or 1 for every other kind.
func (e *Error) ExitCode() int {
	if e.Kind == KindBuildIdMismatch {
		return 2
	}
	return 1
}

// FromError reifies any error into a Result. A *Error contributes its Kind's
// status and message; any other error becomes a plain StatusError.
func FromError(tool string, start time.Time, err error) *Result {
	if err == nil {
		return Success(tool, start)
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return &Result{Status: rerr.Kind.status(), Tool: tool, DurationMs: elapsedMs(start), Error: rerr.Error()}
	}
	return ErrorResult(tool, start, err)
}

// ExitCode derives the process exit code for r: 0 on success, 1 otherwise.
// Callers holding the original error (not just the reified Result) should
// prefer (*Error).ExitCode, which distinguishes the dedicated code 2 for a
// build-id mismatch (spec §6 decode_log).
func (r *Result) ExitCode() int {
	if r.Status == StatusSuccess {
		return 0
	}
	return 1
}

// Emit writes r to w: the single JSON document when jsonMode is true or w is
// not a terminal, otherwise an interactive human-readable summary.
func Emit(w *os.File, r *Result, jsonMode bool) error {
	if jsonMode || !term.IsTerminal(int(w.Fd())) {
		enc := json.NewEncoder(w)
		return enc.Encode(r)
	}
	return renderInteractive(w, r)
}

func renderInteractive(w io.Writer, r *Result) error {
	fmt.Fprintf(w, "%s  %s  (%dms)\n", statusIcon(r.Status), r.Tool, r.DurationMs)
	if r.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
	if len(r.Checks) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CHECK\tPASS\tADVISORY\tDETAIL")
		for name, c := range r.Checks {
			fmt.Fprintf(tw, "%s\t%v\t%v\t%s\n", name, c.Pass, c.Advisory, c.Detail)
		}
		tw.Flush()
	}
	if len(r.Stages) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "STAGE\tSTATUS\tDURATION(ms)")
		for name, s := range r.Stages {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", name, s.Status, s.DurationMs)
		}
		tw.Flush()
	}
	return nil
}

func statusIcon(s Status) string {
	switch s {
	case StatusSuccess:
		return "✓"
	case StatusSkipped:
		return "-"
	default:
		return "✗"
	}
}
