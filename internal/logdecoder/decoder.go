// Package logdecoder consumes the binary RTT stream (Channel 1), reframes
// it into packets, validates the build-identifier handshake, and decodes
// packets into structured records against a token database (spec §4.10).
package logdecoder

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/tokendb"
	"github.com/GurkeX/hil-host-core/internal/varint"
)

// Record is one decoded log line, emitted in packet-completion order.
type Record struct {
	Timestamp time.Time `json:"ts"`
	Level     string    `json:"level"`
	Msg       string    `json:"msg"`
	Token     string    `json:"token"`
	File      string    `json:"file"`
	Line      int       `json:"line"`
	RawArgs   []any     `json:"raw_args"`
}

// maxConsecutiveResyncs is the number of consecutive ArgCountMismatch
// byte-discards tolerated before the stream is declared fatally malformed
// (spec §4.10 failure taxonomy, MalformedPacket).
const maxConsecutiveResyncs = 3

// Option configures a Decoder.
type Option func(*Decoder)

// WithoutBuildIDValidation disables the connection-first handshake check,
// for forensic/replay use against a capture that doesn't start at the
// stream's first packet (spec §4.10.1).
func WithoutBuildIDValidation() Option {
	return func(d *Decoder) { d.validateHandshake = false }
}

// Decoder is a streaming, stateful packet reassembler and decoder. Feed data
// to it as it arrives; its internal buffer carries partial packets across
// calls. Not safe for concurrent use.
type Decoder struct {
	db                *tokendb.Database
	buf               []byte
	resyncFailures    int
	validateHandshake bool
	handshakeDone     bool
}

// New constructs a Decoder bound to db.
func New(db *tokendb.Database, opts ...Option) *Decoder {
	d := &Decoder{db: db, validateHandshake: true}
	for _, opt := range opts {
		opt(d)
	}
	if !d.validateHandshake {
		d.handshakeDone = true
	}
	return d
}

// Feed appends chunk to the internal buffer and decodes as many complete
// packets as are available, returning the records produced. A trailing
// partial packet is retained for the next call. Feed returns an error only
// for a fatal condition (build-id mismatch, three consecutive resync
// failures); both are wrapped as a *result.Error.
func (d *Decoder) Feed(chunk []byte) ([]Record, error) {
	d.buf = append(d.buf, chunk...)
	var out []Record
	for {
		if len(d.buf) < 5 {
			return out, nil
		}
		hash := binary.LittleEndian.Uint32(d.buf[0:4])
		header := d.buf[4]
		headerArgCount := int(header & 0x0f)

		rec, known := d.db.Lookup(hash)
		if !known {
			d.buf = d.buf[5:]
			d.resyncFailures = 0
			if !d.handshakeDone {
				return out, d.handshakeViolation(hash)
			}
			out = append(out, unknownRecord(hash))
			continue
		}

		if headerArgCount != len(rec.ArgTypes) {
			d.resyncFailures++
			out = append(out, argCountMismatchRecord(hash,
				fmt.Sprintf("header carried %d args, database expects %d", headerArgCount, len(rec.ArgTypes))))
			if d.resyncFailures >= maxConsecutiveResyncs {
				return out, result.NewError(result.KindProtocolViolation,
					fmt.Sprintf("malformed packet: resync failed %d times at token 0x%08x", d.resyncFailures, hash), nil)
			}
			d.buf = d.buf[1:]
			continue
		}

		args, consumed, err := decodeArgs(d.buf[5:], rec.ArgTypes)
		if err == errIncompletePacket {
			return out, nil
		}
		if err != nil {
			d.resyncFailures++
			out = append(out, argCountMismatchRecord(hash, fmt.Sprintf("arg decode failed: %v", err)))
			if d.resyncFailures >= maxConsecutiveResyncs {
				return out, result.NewError(result.KindProtocolViolation,
					fmt.Sprintf("malformed packet: %v", err), nil)
			}
			d.buf = d.buf[1:]
			continue
		}
		d.buf = d.buf[5+consumed:]
		d.resyncFailures = 0

		if !d.handshakeDone {
			if hash != tokendb.BuildIDTokenHash() {
				return out, d.handshakeViolation(hash)
			}
			if err := d.checkBuildID(args); err != nil {
				return out, err
			}
			d.handshakeDone = true
			continue
		}

		out = append(out, buildRecord(hash, rec, args))
	}
}

// Close flushes decoding, discarding any retained partial packet at the
// tail of the stream per the §3 lifecycle invariant, and returns no
// further records (a partial packet can never complete).
func (d *Decoder) Close() []Record {
	d.buf = nil
	return nil
}

func (d *Decoder) handshakeViolation(hash uint32) error {
	return result.NewError(result.KindProtocolViolation,
		fmt.Sprintf("expected build-id handshake packet, got token 0x%08x", hash), nil)
}

func (d *Decoder) checkBuildID(args []any) error {
	if len(args) != 1 {
		return result.NewError(result.KindProtocolViolation, "build-id handshake packet carried unexpected argument count", nil)
	}
	got, ok := args[0].(uint32)
	if !ok {
		return result.NewError(result.KindProtocolViolation, "build-id handshake argument was not u32", nil)
	}
	want := d.db.BuildID()
	if got != want {
		return result.NewError(result.KindBuildIdMismatch,
			fmt.Sprintf("firmware build_id 0x%08x does not match token database build_id 0x%08x", got, want), nil)
	}
	return nil
}

func unknownRecord(hash uint32) Record {
	return Record{
		Timestamp: time.Now().UTC(),
		Level:     string(tokendb.LevelUnknown),
		Msg:       fmt.Sprintf("<unknown token 0x%08x>", hash),
		Token:     fmt.Sprintf("0x%08x", hash),
		RawArgs:   []any{},
	}
}

// argCountMismatchRecord is the structured error record emitted in place of
// the discarded byte on a resync (spec §4.10.3), so a decode_log consumer
// sees the gap instead of silent byte loss.
func argCountMismatchRecord(hash uint32, detail string) Record {
	return Record{
		Timestamp: time.Now().UTC(),
		Level:     string(tokendb.LevelUnknown),
		Msg:       fmt.Sprintf("<ArgCountMismatch: token 0x%08x %s>", hash, detail),
		Token:     fmt.Sprintf("0x%08x", hash),
		RawArgs:   []any{},
	}
}

func buildRecord(hash uint32, rec tokendb.Record, args []any) Record {
	return Record{
		Timestamp: time.Now().UTC(),
		Level:     string(rec.Level),
		Msg:       formatMessage(rec.Format, args),
		Token:     fmt.Sprintf("0x%08x", hash),
		File:      rec.File,
		Line:      rec.Line,
		RawArgs:   args,
	}
}

func formatMessage(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

var errIncompletePacket = fmt.Errorf("logdecoder: incomplete packet")

// decodeArgs decodes len(types) arguments from the head of b per type (spec
// §4.10.3), returning the decoded values, bytes consumed, and an error:
// errIncompletePacket if b does not yet hold a full set of arguments, or a
// wrapped varint/encoding error if the bytes present are malformed.
func decodeArgs(b []byte, types []tokendb.ArgType) ([]any, int, error) {
	args := make([]any, 0, len(types))
	off := 0
	for _, t := range types {
		switch t {
		case tokendb.ArgI32:
			v, n, err := varint.DecodeSigned(b[off:])
			if err == varint.ErrIncomplete {
				return nil, 0, errIncompletePacket
			}
			if err != nil {
				return nil, 0, err
			}
			args = append(args, v)
			off += n
		case tokendb.ArgU32, tokendb.ArgHex32:
			v, n, err := varint.DecodeUnsigned(b[off:])
			if err == varint.ErrIncomplete {
				return nil, 0, errIncompletePacket
			}
			if err != nil {
				return nil, 0, err
			}
			args = append(args, v)
			off += n
		case tokendb.ArgF32:
			if off+4 > len(b) {
				return nil, 0, errIncompletePacket
			}
			bits := binary.LittleEndian.Uint32(b[off : off+4])
			args = append(args, math.Float32frombits(bits))
			off += 4
		case tokendb.ArgStr:
			l, n, err := varint.DecodeUnsigned(b[off:])
			if err == varint.ErrIncomplete {
				return nil, 0, errIncompletePacket
			}
			if err != nil {
				return nil, 0, err
			}
			off += n
			if off+int(l) > len(b) {
				return nil, 0, errIncompletePacket
			}
			raw := b[off : off+int(l)]
			args = append(args, strings.ToValidUTF8(string(raw), "�"))
			off += int(l)
		default:
			return nil, 0, fmt.Errorf("unknown arg type %q", t)
		}
	}
	return args, off, nil
}

// Dial opens the binary-channel TCP connection with exponential backoff up
// to maxAttempts (spec §4.10.7, default 10).
func Dial(ctx context.Context, addr string, maxAttempts int) (net.Conn, error) {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	op := func() (net.Conn, error) {
		d := net.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	conn, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(maxAttempts)))
	if err != nil {
		return nil, result.NewError(result.KindIoError, fmt.Sprintf("connect to %s", addr), err)
	}
	return conn, nil
}
