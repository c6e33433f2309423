// Package tokendb loads and indexes the CSV token database that maps a
// 32-bit format-string hash to its level, printf-style format, argument
// types, and source location (spec §4.9).
package tokendb

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Level is the severity a token's log line was emitted at.
type Level string

const (
	LevelError   Level = "ERROR"
	LevelWarn    Level = "WARN"
	LevelInfo    Level = "INFO"
	LevelDebug   Level = "DEBUG"
	LevelUnknown Level = "UNKNOWN"
)

// ArgType is the wire encoding of one packet argument (spec §3, §4.10.3).
type ArgType string

const (
	ArgI32  ArgType = "i32"
	ArgU32  ArgType = "u32"
	ArgHex32 ArgType = "hex32"
	ArgF32  ArgType = "f32"
	ArgStr  ArgType = "str"
)

// Record is one row of the token database.
type Record struct {
	Hash     uint32
	Level    Level
	Format   string
	ArgTypes []ArgType
	File     string
	Line     int
}

// ErrDatabase is wrapped by every load-time validation failure (duplicate
// hash, hash/format mismatch, malformed row, build-id mismatch).
var ErrDatabase = errors.New("tokendb: database error")

// Database is the immutable, load-once index described in spec §4.9. The
// zero value is not usable; construct with Load.
type Database struct {
	records map[uint32]Record
	buildID uint32
}

// buildIDSentinel is the reserved format string whose hash identifies the
// handshake packet a firmware image emits as its first binary-log record
// (spec §4.10.1). Declaring it as an ordinary (if reserved) format string
// keeps the handshake token computed by the same fnv1a32 rule as every
// other token, rather than by a separate convention.
const buildIDSentinel = "__BUILD_ID__"

// BuildIDTokenHash is the token hash of the reserved BUILD_ID handshake
// packet, shared by internal/logdecoder.
func BuildIDTokenHash() uint32 {
	return FNV1a32(buildIDSentinel)
}

// FNV1a32 hashes s with 32-bit FNV-1a, matched bit-exactly by the embedded
// side (spec §3 invariant ii, §8 hash-consistency property).
func FNV1a32(s string) uint32 {
	h := fnv.New32a()
	_, _ = io.WriteString(h, s)
	return h.Sum32()
}

// Load parses the CSV at path: a header row `token_hash,level,format_string,
// arg_types,file,line`, optionally preceded by a `# build_id=0x...` comment
// line, one data row per token. It asserts token_hash uniqueness and
// hash/format consistency, and cross-validates any declared build_id
// against the value computed by BuildID's own rule.
func Load(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDatabase, path, err)
	}
	defer f.Close()
	return load(f)
}

func load(r io.Reader) (*Database, error) {
	br := bufio.NewReader(r)
	declaredBuildID, hasDeclared, err := consumeLeadingComments(br)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = 6
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %w", ErrDatabase, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty database", ErrDatabase)
	}
	if !isHeaderRow(rows[0]) {
		return nil, fmt.Errorf("%w: missing header row", ErrDatabase)
	}
	rows = rows[1:]

	db := &Database{records: make(map[uint32]Record, len(rows))}
	for i, row := range rows {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrDatabase, i+1, err)
		}
		if rec.Hash != FNV1a32(rec.Format) {
			return nil, fmt.Errorf("%w: row %d: token_hash 0x%08x does not match fnv1a32(%q)", ErrDatabase, i+1, rec.Hash, rec.Format)
		}
		if _, dup := db.records[rec.Hash]; dup {
			return nil, fmt.Errorf("%w: row %d: duplicate token_hash 0x%08x", ErrDatabase, i+1, rec.Hash)
		}
		db.records[rec.Hash] = rec
	}

	computed := computeBuildID(db.records)
	if hasDeclared && declaredBuildID != computed {
		return nil, fmt.Errorf("%w: declared build_id 0x%08x does not match computed 0x%08x", ErrDatabase, declaredBuildID, computed)
	}
	db.buildID = computed
	return db, nil
}

func consumeLeadingComments(br *bufio.Reader) (uint32, bool, error) {
	var buildID uint32
	var found bool
	for {
		peek, err := br.Peek(1)
		if err != nil || len(peek) == 0 || peek[0] != '#' {
			return buildID, found, nil
		}
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return 0, false, fmt.Errorf("%w: reading comment line: %w", ErrDatabase, err)
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
		if rest, ok := strings.CutPrefix(line, "build_id="); ok {
			v, perr := strconv.ParseUint(strings.TrimSpace(rest), 0, 32)
			if perr != nil {
				return 0, false, fmt.Errorf("%w: malformed build_id comment %q: %w", ErrDatabase, line, perr)
			}
			buildID = uint32(v)
			found = true
		}
		if err == io.EOF {
			return buildID, found, nil
		}
	}
}

func isHeaderRow(row []string) bool {
	return len(row) == 6 && strings.EqualFold(row[0], "token_hash")
}

func parseRow(row []string) (Record, error) {
	hash, err := strconv.ParseUint(strings.TrimSpace(row[0]), 0, 32)
	if err != nil {
		return Record{}, fmt.Errorf("token_hash %q: %w", row[0], err)
	}
	line, err := strconv.Atoi(strings.TrimSpace(row[5]))
	if err != nil {
		return Record{}, fmt.Errorf("line %q: %w", row[5], err)
	}
	var argTypes []ArgType
	if raw := strings.TrimSpace(row[3]); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			at := ArgType(strings.TrimSpace(part))
			switch at {
			case ArgI32, ArgU32, ArgHex32, ArgF32, ArgStr:
			default:
				return Record{}, fmt.Errorf("unknown arg type %q", part)
			}
			argTypes = append(argTypes, at)
		}
	}
	return Record{
		Hash:     uint32(hash),
		Level:    Level(strings.ToUpper(strings.TrimSpace(row[1]))),
		Format:   row[2],
		ArgTypes: argTypes,
		File:     row[4],
		Line:     line,
	}, nil
}

// computeBuildID implements the canonical concatenation this repo settled
// on for spec §9's open BUILD_ID question: ascending-sorted token_hash
// values, each as 4 little-endian bytes, FNV-1a 32-bit over the result.
func computeBuildID(records map[uint32]Record) uint32 {
	hashes := make([]uint32, 0, len(records))
	for h := range records {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	h := fnv.New32a()
	buf := make([]byte, 4)
	for _, v := range hashes {
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
		buf[2] = byte(v >> 16)
		buf[3] = byte(v >> 24)
		_, _ = h.Write(buf)
	}
	return h.Sum32()
}

// Lookup returns the record for hash, if present.
func (d *Database) Lookup(hash uint32) (Record, bool) {
	rec, ok := d.records[hash]
	return rec, ok
}

// BuildID returns the database's build identifier.
func (d *Database) BuildID() uint32 {
	return d.buildID
}

// Len returns the number of distinct tokens loaded.
func (d *Database) Len() int {
	return len(d.records)
}
