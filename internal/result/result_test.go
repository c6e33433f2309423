package result

import (
	"errors"
	"testing"
	"time"
)

func TestFromErrorPlain(t *testing.T) {
	r := FromError("flash", time.Now(), errors.New("boom"))
	if r.Status != StatusError {
		t.Fatalf("status = %s, want error", r.Status)
	}
	if r.Error != "boom" {
		t.Fatalf("error = %q", r.Error)
	}
}

func TestFromErrorNil(t *testing.T) {
	r := FromError("flash", time.Now(), nil)
	if r.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", r.Status)
	}
}

func TestFromErrorKinds(t *testing.T) {
	tests := map[Kind]Status{
		KindNotFound:          StatusError,
		KindPreFlightFail:     StatusFailure,
		KindTimeout:           StatusTimeout,
		KindProtocolViolation: StatusError,
		KindBuildIdMismatch:   StatusFailure,
		KindIoError:           StatusError,
		KindCancelled:         StatusError,
	}
	for kind, want := range tests {
		err := NewError(kind, "detail", nil)
		r := FromError("decode_log", time.Now(), err)
		if r.Status != want {
			t.Errorf("kind %s: status = %s, want %s", kind, r.Status, want)
		}
	}
}

func TestBuildIdMismatchExitCode(t *testing.T) {
	err := NewError(KindBuildIdMismatch, "mismatch", nil)
	if got := err.ExitCode(); got != 2 {
		t.Fatalf("ExitCode() = %d, want 2", got)
	}
	other := NewError(KindIoError, "disk", nil)
	if got := other.ExitCode(); got != 1 {
		t.Fatalf("ExitCode() = %d, want 1", got)
	}
}

func TestWithStagesDerivesStatus(t *testing.T) {
	start := time.Now()
	stages := map[string]*Result{
		"build": Success("build", start),
		"flash": Failure("flash", start, "verify mismatch"),
		"server": Skipped("server_start"),
	}
	r := WithStages("pipeline", start, stages, []string{"build", "flash", "server"})
	if r.Status != StatusFailure {
		t.Fatalf("status = %s, want failure", r.Status)
	}
}

func TestWithChecksAdvisoryDoesNotFail(t *testing.T) {
	checks := map[string]Check{
		"server_clear":    {Pass: false, Detail: "port in use", Advisory: true},
		"probe_reachable": {Pass: true, Detail: "core list ok"},
	}
	r := WithChecks("preflight", time.Now(), checks)
	if r.Status != StatusSuccess {
		t.Fatalf("status = %s, want success when only advisory check fails", r.Status)
	}
}

func TestWithChecksNonAdvisoryFails(t *testing.T) {
	checks := map[string]Check{
		"probe_reachable": {Pass: false, Detail: "no response"},
	}
	r := WithChecks("preflight", time.Now(), checks)
	if r.Status != StatusFailure {
		t.Fatalf("status = %s, want failure", r.Status)
	}
}
