package tokendb

import (
	"fmt"
	"strings"
	"testing"
)

func buildCSV(buildID string, rows ...string) string {
	var sb strings.Builder
	if buildID != "" {
		fmt.Fprintf(&sb, "# build_id=%s\n", buildID)
	}
	sb.WriteString("token_hash,level,format_string,arg_types,file,line\n")
	for _, r := range rows {
		sb.WriteString(r)
		sb.WriteString("\n")
	}
	return sb.String()
}

func row(format string, level Level, argTypes, file string, line int) string {
	return fmt.Sprintf("0x%08x,%s,%q,%q,%s,%d", FNV1a32(format), level, format, argTypes, file, line)
}

func TestLoadHappyPath(t *testing.T) {
	motor := row("Motor rpm=%d, temp=%f", LevelInfo, "i32,f32", "main.c", 87)
	csv := buildCSV("", motor)
	db, err := load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rec, ok := db.Lookup(FNV1a32("Motor rpm=%d, temp=%f"))
	if !ok {
		t.Fatal("expected lookup to find record")
	}
	if rec.Level != LevelInfo || rec.File != "main.c" || rec.Line != 87 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(rec.ArgTypes) != 2 || rec.ArgTypes[0] != ArgI32 || rec.ArgTypes[1] != ArgF32 {
		t.Fatalf("unexpected arg types: %+v", rec.ArgTypes)
	}
}

func TestDuplicateHashFails(t *testing.T) {
	same := row("same message", LevelWarn, "", "a.c", 1)
	csv := buildCSV("", same, same)
	if _, err := load(strings.NewReader(csv)); err == nil {
		t.Fatal("expected duplicate hash to fail")
	}
}

func TestHashMismatchFails(t *testing.T) {
	bad := fmt.Sprintf("0x%08x,INFO,%q,,a.c,1", uint32(0xdeadbeef), "totally different text")
	csv := buildCSV("", bad)
	if _, err := load(strings.NewReader(csv)); err == nil {
		t.Fatal("expected hash/format mismatch to fail")
	}
}

func TestBuildIDCrossValidation(t *testing.T) {
	r := row("hello", LevelDebug, "", "a.c", 1)
	csv := buildCSV("", r)
	db, err := load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	good := fmt.Sprintf("0x%08x", db.BuildID())

	csvWithGoodID := buildCSV(good, r)
	if _, err := load(strings.NewReader(csvWithGoodID)); err != nil {
		t.Fatalf("expected matching declared build_id to load cleanly: %v", err)
	}

	csvWithBadID := buildCSV("0x00000001", r)
	if _, err := load(strings.NewReader(csvWithBadID)); err == nil {
		t.Fatal("expected mismatched declared build_id to fail")
	}
}

func TestBuildIDOrderIndependent(t *testing.T) {
	a := row("alpha", LevelInfo, "", "a.c", 1)
	b := row("bravo", LevelInfo, "", "a.c", 2)
	db1, err := load(strings.NewReader(buildCSV("", a, b)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	db2, err := load(strings.NewReader(buildCSV("", b, a)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if db1.BuildID() != db2.BuildID() {
		t.Fatalf("build id depends on row order: %08x vs %08x", db1.BuildID(), db2.BuildID())
	}
}
