// Package rpcclient implements the framed TCP client for the debug
// server's TCL command port (spec §4.3). Requests and responses are plain
// text terminated by a single 0x1A byte; there is no other delimiter.
package rpcclient

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/GurkeX/hil-host-core/internal/result"
)

// frameByte terminates every request and response on the wire.
const frameByte = 0x1A

// Client is a single TCP connection to the debug server's command port,
// reused across a poll loop. Not reentrant — callers must serialize access
// from a single goroutine, matching spec §4.3's "single-threaded per client
// instance" concurrency note.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Connect dials host:port with the given timeout.
func Connect(ctx context.Context, host string, port int, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, result.NewError(result.KindIoError, fmt.Sprintf("connect to rpc port %d", port), err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Execute sends command framed by a trailing 0x1A byte and returns the
// response with its own trailing 0x1A stripped. deadline bounds the whole
// request/response round trip.
func (c *Client) Execute(command string, deadline time.Duration) (string, error) {
	if err := c.conn.SetDeadline(time.Now().Add(deadline)); err != nil {
		return "", result.NewError(result.KindIoError, "set deadline", err)
	}
	if _, err := c.conn.Write(append([]byte(command), frameByte)); err != nil {
		return "", result.NewError(result.KindIoError, "write command", err)
	}
	resp, err := c.r.ReadString(frameByte)
	if err != nil {
		if isTimeout(err) {
			return "", result.NewError(result.KindTimeout, fmt.Sprintf("command %q", command), err)
		}
		return "", result.NewError(result.KindIoError, fmt.Sprintf("read response to %q", command), err)
	}
	return strings.TrimSuffix(resp, string(rune(frameByte))), nil
}

// ExecuteMany runs commands in order over the same connection, for batched
// queries in a polling loop (spec §4.3).
func (c *Client) ExecuteMany(commands []string, deadline time.Duration) ([]string, error) {
	out := make([]string, 0, len(commands))
	for _, cmd := range commands {
		resp, err := c.Execute(cmd, deadline)
		if err != nil {
			return out, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
