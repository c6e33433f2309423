package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/GurkeX/hil-host-core/internal/logdecoder"
	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/tokendb"
)

// DecodeLogCmd decodes the binary RTT stream against a token database,
// writing newline-delimited JSON records (spec §4.10, §6). A build-id
// mismatch surfaces the dedicated exit code 2 via (*result.Error).ExitCode.
type DecodeLogCmd struct {
	Port              int    `default:"9091" placeholder:"<port>" help:"RTT binary-channel TCP port"`
	CSV               string `required:"" placeholder:"<path>" help:"token database CSV"`
	Output            string `placeholder:"<path>" help:"output NDJSON path; defaults to stdout"`
	NoValidateBuildID bool   `name:"no-validate-build-id" help:"skip the firmware/database build-id handshake"`
	MaxRetries        int    `default:"10" placeholder:"<n>" help:"connect retry attempts"`
}

func (c *DecodeLogCmd) Run(rc *Context) error {
	start := time.Now()

	db, err := tokendb.Load(c.CSV)
	if err != nil {
		exitWithDecodeErr(rc, start, err)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", c.Port)
	conn, err := logdecoder.Dial(rc.Context, addr, c.MaxRetries)
	if err != nil {
		exitWithDecodeErr(rc, start, err)
	}
	defer conn.Close()

	out := os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			exitWithDecodeErr(rc, start, result.NewError(result.KindIoError, "create output file", err))
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()
	enc := json.NewEncoder(w)

	var opts []logdecoder.Option
	if c.NoValidateBuildID {
		opts = append(opts, logdecoder.WithoutBuildIDValidation())
	}
	dec := logdecoder.New(db, opts...)

	buf := make([]byte, 4096)
	for {
		n, rerr := conn.Read(buf)
		if n > 0 {
			records, ferr := dec.Feed(buf[:n])
			for _, rec := range records {
				if err := enc.Encode(rec); err != nil {
					slog.ErrorContext(rc.Context, "decode_log: encode record failed", "error", err)
				}
			}
			if ferr != nil {
				exitWithDecodeErr(rc, start, ferr)
			}
		}
		if rerr != nil {
			break
		}
	}
	dec.Close()

	exitWith(rc, result.Success("decode_log", start))
	return nil
}

func exitWithDecodeErr(rc *Context, start time.Time, err error) {
	r := result.FromError("decode_log", start, err)
	recordAndEmit(rc, r)
	var rerr *result.Error
	if errors.As(err, &rerr) {
		os.Exit(rerr.ExitCode())
	}
	os.Exit(r.ExitCode())
}
