package logdecoder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/tokendb"
	"github.com/GurkeX/hil-host-core/internal/varint"
)

func mustDB(t *testing.T, csv string) *tokendb.Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("writing test database: %v", err)
	}
	db, err := tokendb.Load(path)
	if err != nil {
		t.Fatalf("loading test database: %v", err)
	}
	return db
}

func TestDecoderHappyPath(t *testing.T) {
	csv := "token_hash,level,format_string,arg_types,file,line\n" +
		"0xa1b2c3d4,INFO,\"Motor rpm=%d, temp=%f\",\"i32,f32\",main.c,87\n"
	db := mustDB(t, csv)

	dec := New(db, WithoutBuildIDValidation())
	packet := []byte{0xD4, 0xC3, 0xB2, 0xA1, 0x22, 0x80, 0x32, 0x00, 0x00, 0x28, 0x42}
	recs, err := dec.Feed(packet)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.Level != "INFO" {
		t.Errorf("level = %q, want INFO", r.Level)
	}
	if r.Msg != "Motor rpm=3200, temp=42.000000" {
		t.Errorf("msg = %q", r.Msg)
	}
	if r.Token != "0xa1b2c3d4" {
		t.Errorf("token = %q", r.Token)
	}
	if len(r.RawArgs) != 2 {
		t.Fatalf("raw_args = %+v", r.RawArgs)
	}
}

func TestDecoderUnknownToken(t *testing.T) {
	csv := "token_hash,level,format_string,arg_types,file,line\n"
	db := mustDB(t, csv)

	dec := New(db, WithoutBuildIDValidation())
	packet := []byte{0xEF, 0xBE, 0xAD, 0xDE, 0x20}
	recs, err := dec.Feed(packet)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.Level != "UNKNOWN" {
		t.Errorf("level = %q, want UNKNOWN", r.Level)
	}
	if r.Msg != "<unknown token 0xdeadbeef>" {
		t.Errorf("msg = %q", r.Msg)
	}
	if len(r.RawArgs) != 0 {
		t.Errorf("raw_args = %+v, want empty", r.RawArgs)
	}
}

func TestDecoderBuildIDMismatch(t *testing.T) {
	csv := "token_hash,level,format_string,arg_types,file,line\n" + buildIDRow()
	db := mustDB(t, csv)

	dec := New(db)
	handshakeHash := tokendb.BuildIDTokenHash()
	mismatched := db.BuildID() + 1
	payload := varint.EncodeUnsigned(mismatched)
	packet := append(leU32(handshakeHash), byte(0x01))
	packet = append(packet, payload...)

	_, err := dec.Feed(packet)
	if err == nil {
		t.Fatal("expected build-id mismatch error")
	}
	rerr, ok := err.(*result.Error)
	if !ok || rerr.Kind != result.KindBuildIdMismatch {
		t.Fatalf("err = %v, want KindBuildIdMismatch", err)
	}
}

func TestDecoderHandshakeOKThenRecords(t *testing.T) {
	csv := "token_hash,level,format_string,arg_types,file,line\n" + buildIDRow() +
		"0xa1b2c3d4,INFO,\"Motor rpm=%d, temp=%f\",\"i32,f32\",main.c,87\n"
	db := mustDB(t, csv)

	dec := New(db)
	handshakeHash := tokendb.BuildIDTokenHash()
	payload := varint.EncodeUnsigned(db.BuildID())
	packet := append(leU32(handshakeHash), byte(0x01))
	packet = append(packet, payload...)
	packet = append(packet, []byte{0xD4, 0xC3, 0xB2, 0xA1, 0x22, 0x80, 0x32, 0x00, 0x00, 0x28, 0x42}...)

	recs, err := dec.Feed(packet)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("handshake packet should not itself be emitted as a record; got %d records", len(recs))
	}
}

func TestDecoderPartialPacketAcrossFeeds(t *testing.T) {
	csv := "token_hash,level,format_string,arg_types,file,line\n" +
		"0xa1b2c3d4,INFO,\"Motor rpm=%d, temp=%f\",\"i32,f32\",main.c,87\n"
	db := mustDB(t, csv)
	dec := New(db, WithoutBuildIDValidation())

	full := []byte{0xD4, 0xC3, 0xB2, 0xA1, 0x22, 0x80, 0x32, 0x00, 0x00, 0x28, 0x42}
	recs, err := dec.Feed(full[:6])
	if err != nil {
		t.Fatalf("Feed partial: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records from partial feed, got %d", len(recs))
	}
	recs, err = dec.Feed(full[6:])
	if err != nil {
		t.Fatalf("Feed rest: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record after completing packet, got %d", len(recs))
	}
}

func TestDecoderArgCountMismatchResyncs(t *testing.T) {
	csv := "token_hash,level,format_string,arg_types,file,line\n" +
		"0xa1b2c3d4,INFO,\"Motor rpm=%d, temp=%f\",\"i32,f32\",main.c,87\n"
	db := mustDB(t, csv)
	dec := New(db, WithoutBuildIDValidation())

	// Header declares 0 args for a token that expects 2: not a match, so the
	// decoder must discard a byte and retry rather than stalling forever.
	bad := []byte{0xD4, 0xC3, 0xB2, 0xA1, 0x00}
	recs, err := dec.Feed(bad)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one ArgCountMismatch record, got %d", len(recs))
	}
	if recs[0].Level != "UNKNOWN" || !strings.Contains(recs[0].Msg, "ArgCountMismatch") {
		t.Fatalf("expected an ArgCountMismatch record, got %+v", recs[0])
	}
	if dec.resyncFailures == 0 {
		t.Fatal("expected a resync failure to have been recorded")
	}
	if len(dec.buf) != len(bad)-1 {
		t.Fatalf("expected exactly one byte discarded, buf len = %d", len(dec.buf))
	}
}

// buildIDRow is the database row for the reserved BUILD_ID handshake token;
// the decoder frames the handshake packet from this row's u32 argument.
func buildIDRow() string {
	return fmt.Sprintf("0x%08x,INFO,__BUILD_ID__,u32,main.c,1\n", tokendb.BuildIDTokenHash())
}

func leU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
