package openocd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/GurkeX/hil-host-core/internal/result"
	"github.com/GurkeX/hil-host-core/internal/rpcclient"
)

// Ports are the TCP endpoints the debug server exposes (spec §6).
type Ports struct {
	TCL       int
	GDB       int
	RTTText   int
	RTTBinary int
	DebugStub int
}

// DefaultPorts are the conventional defaults from spec §6.
func DefaultPorts() Ports {
	return Ports{TCL: 6666, GDB: 3333, RTTText: 9090, RTTBinary: 9091, DebugStub: 3333}
}

// Config describes one debug-server invocation.
type Config struct {
	Location         Location
	InterfaceCfg     string
	TargetCfg        string
	Ports            Ports
	PostInitCommands []string
}

// toArgs builds the openocd CLI invocation for Config, grounded on the
// reflection-based flag builder the teacher uses for its own CLI-wrapping
// service (applecontainer/options.ToArgs) — here hand-composed rather than
// tag-driven since the debug server's flags are positional -f/-c pairs, not
// a flat option struct.
func (c Config) toArgs() []string {
	args := []string{
		"-s", c.Location.ScriptsPath,
		"-f", c.InterfaceCfg,
		"-f", c.TargetCfg,
		"-c", fmt.Sprintf("tcl_port %d", c.Ports.TCL),
		"-c", fmt.Sprintf("gdb_port %d", c.Ports.GDB),
	}
	startup := "init"
	if len(c.PostInitCommands) > 0 {
		startup = strings.Join(append([]string{"init"}, c.PostInitCommands...), "; ")
	}
	args = append(args, "-c", startup)
	return args
}

// Process is a supervised debug-server child process.
type Process struct {
	cmd   *exec.Cmd
	ports Ports
}

// Start spawns the debug server and returns immediately; the caller must
// explicitly wait for readiness via WaitUntilReady (spec §4.2 scheduling
// note: "spawning returns immediately").
func Start(ctx context.Context, cfg Config) (*Process, error) {
	if IsRunning(cfg.Ports.TCL) {
		return nil, result.NewError(result.KindIoError, fmt.Sprintf("port %d already in use", cfg.Ports.TCL), nil)
	}

	cmd := exec.CommandContext(ctx, cfg.Location.BinaryPath, cfg.toArgs()...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	slog.InfoContext(ctx, "openocd.Start", "cmd", strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return nil, result.NewError(result.KindIoError, "spawn debug server", err)
	}
	return &Process{cmd: cmd, ports: cfg.Ports}, nil
}

// WaitUntilReady polls the TCL RPC port until it accepts a connection and
// answers a trivial command, or timeout elapses.
func (p *Process) WaitUntilReady(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c, err := rpcclient.Connect(ctx, "127.0.0.1", p.ports.TCL, 500*time.Millisecond); err == nil {
			_, execErr := c.Execute("version", 500*time.Millisecond)
			c.Close()
			if execErr == nil {
				return true, nil
			}
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return false, nil
}

// IsRunning is a port-based liveness probe (spec §4.2 is_running).
func IsRunning(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Stop terminates the debug server: SIGTERM to the process group, a
// bounded wait, and an escalation to SIGKILL (spec §4.2 stop, §5 cancellation
// guarantee that a subprocess is never left behind).
func (p *Process) Stop(timeout time.Duration) error {
	if p.cmd.Process == nil {
		return nil
	}
	pgid, err := syscall.Getpgid(p.cmd.Process.Pid)
	if err != nil {
		pgid = p.cmd.Process.Pid
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		<-done
		return nil
	}
}
