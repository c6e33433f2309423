package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/GurkeX/hil-host-core/internal/result"
)

func TestRecordAndList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	r := result.Success("flash", time.Now())
	id, err := store.Record(ctx, r)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty generated run id")
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].ID != id {
		t.Fatalf("runs[0].ID = %s, want %s", runs[0].ID, id)
	}
	if runs[0].Tool != "flash" {
		t.Fatalf("runs[0].Tool = %s, want flash", runs[0].Tool)
	}
}

func TestShowMissingRunIsNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	_, err = store.Show(context.Background(), "no-such-run")
	if err == nil {
		t.Fatal("expected error for missing run id")
	}
	var rerr *result.Error
	if !errors.As(err, &rerr) || rerr.Kind != result.KindNotFound {
		t.Fatalf("err = %v, want KindNotFound", err)
	}
}

func TestShowReturnsStoredDocument(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	r := result.Failure("preflight", time.Now(), "probe unreachable")
	id, err := store.Record(ctx, r)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	run, err := store.Show(ctx, id)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if run.Status != result.StatusFailure {
		t.Fatalf("Status = %s, want failure", run.Status)
	}
}
