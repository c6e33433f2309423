// Package rtt implements the RTT Readiness Poller (spec §4.7): waiting for
// the debug server to discover the RTT control block, and waiting on the
// text channel for a boot-completion marker.
package rtt

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/rpcclient"
)

// pollInterval bounds the RPC poll loop to spec §4.7's "polling interval
// ≤ 0.5s" requirement.
const pollInterval = 250 * time.Millisecond

// ReadyResult is wait_for_rtt_ready's return shape (spec §4.7).
type ReadyResult struct {
	Ready          bool
	Channels       []string
	ElapsedSeconds float32
	Error          string
}

// WaitForRTTReady polls the TCL RPC client's "rtt channels" query until it
// returns a non-empty, non-error listing or timeout elapses. A single TCL
// client is opened once and reused across the poll loop (spec §9: "single
// long-lived TCL client in a polling loop").
func WaitForRTTReady(ctx context.Context, host string, port int, timeout time.Duration) ReadyResult {
	start := time.Now()

	client, err := rpcclient.Connect(ctx, host, port, 2*time.Second)
	if err != nil {
		// An RPC socket failure during the first poll returns immediately
		// rather than retrying for the full timeout (spec §4.7 edge case).
		return ReadyResult{Error: err.Error(), ElapsedSeconds: elapsedSeconds(start)}
	}
	defer client.Close()

	deadline := time.Now().Add(timeout)
	for {
		resp, err := client.Execute("rtt channels", 2*time.Second)
		if err == nil {
			channels := parseChannelList(resp)
			if len(channels) > 0 {
				return ReadyResult{Ready: true, Channels: channels, ElapsedSeconds: elapsedSeconds(start)}
			}
		}
		if time.Now().After(deadline) {
			return ReadyResult{ElapsedSeconds: elapsedSeconds(start)}
		}
		select {
		case <-ctx.Done():
			return ReadyResult{Error: ctx.Err().Error(), ElapsedSeconds: elapsedSeconds(start)}
		case <-time.After(pollInterval):
		}
	}
}

func parseChannelList(resp string) []string {
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return nil
	}
	fields := strings.Fields(resp)
	return fields
}

// MarkerResult is wait_for_boot_marker's return shape (spec §4.7).
type MarkerResult struct {
	Found          bool
	BootLog        string
	ElapsedSeconds float32
	Advisory       string
}

// WaitForBootMarker connects to the RTT text-channel TCP endpoint with
// exponential-backoff retry (the server may open the listener slightly
// after declaring ready), accumulates chunks into a buffer that retains
// partial lines across reads, and searches for marker after every chunk.
func WaitForBootMarker(ctx context.Context, host string, port int, marker string, timeout time.Duration) MarkerResult {
	start := time.Now()
	deadline := time.Now().Add(timeout)

	conn, err := dialTextChannel(ctx, host, port, timeout)
	if err != nil {
		return MarkerResult{ElapsedSeconds: elapsedSeconds(start), Advisory: fmt.Sprintf("connect failed: %v", err)}
	}
	defer conn.Close()

	var buf strings.Builder
	readBuf := make([]byte, 4096)
	for time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		readTimeout := time.Second
		if remaining < readTimeout {
			readTimeout = remaining
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := conn.Read(readBuf)
		if n > 0 {
			buf.WriteString(strings.ToValidUTF8(string(readBuf[:n]), "�"))
			if strings.Contains(buf.String(), marker) {
				idx := strings.Index(buf.String(), marker) + len(marker)
				return MarkerResult{Found: true, BootLog: buf.String()[:idx], ElapsedSeconds: elapsedSeconds(start)}
			}
		}
		if err != nil && !isTimeout(err) {
			break
		}
	}
	return MarkerResult{
		Found:          false,
		BootLog:        buf.String(),
		ElapsedSeconds: elapsedSeconds(start),
		Advisory:       "target may have already booted before capture started",
	}
}

func dialTextChannel(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	op := func() (net.Conn, error) {
		d := net.Dialer{Timeout: 2 * time.Second}
		return d.DialContext(dialCtx, "tcp", fmt.Sprintf("%s:%d", host, port))
	}
	conn, err := backoff.Retry(dialCtx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(20))
	if err != nil {
		return nil, result.NewError(result.KindIoError, fmt.Sprintf("connect to rtt text channel %d", port), err)
	}
	return conn, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func elapsedSeconds(start time.Time) float32 {
	return float32(time.Since(start).Seconds())
}
