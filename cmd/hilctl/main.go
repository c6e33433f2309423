// Command hilctl is the host-side HIL orchestration CLI: it flashes
// firmware, supervises the debug server, runs pre-flight diagnostics,
// waits on RTT channel readiness, captures and decodes the tokenized log
// stream, and chains all of that into a single pipeline invocation.
// Grounded on the teacher CLI's kong bootstrap (cmd/sand/main.go).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	kongcompletion "github.com/jotaen/kong-completion"

	"github.com/GurkeX/hil-host-core/internal/config"
	"github.com/GurkeX/hil-host-core/internal/hlog"
	"github.com/GurkeX/hil-host-core/internal/history"
	"github.com/GurkeX/hil-host-core/internal/openocd"
	"github.com/GurkeX/hil-host-core/internal/trace"
)

// Context is shared state every subcommand's Run receives, grounded on the
// teacher CLI's *Context pattern (cmd/sand/main.go).
type Context struct {
	context.Context

	Config  config.Config
	History *history.Store
	Verbose bool
	JSON    bool
}

// CLI is the top-level flag/subcommand surface (spec §6).
type CLI struct {
	ConfigFile string `default:"~/.hilctl.yaml" placeholder:"<path>" help:"path to a YAML defaults file"`
	LogFile    string `placeholder:"<path>" help:"structured log file path (random temp path if unset)"`
	LogLevel   string `default:"info" placeholder:"<debug|info|warn|error>" help:"logging level"`
	Verbose    bool   `help:"also echo structured logs to stderr"`
	JSON       bool   `help:"emit machine-readable JSON instead of an interactive summary"`
	OTLP       string `placeholder:"<host:port>" help:"export pipeline stage spans via OTLP/gRPC to this endpoint"`

	Preflight      PreflightCmd      `cmd:"" help:"run the composite pre-flight diagnostic"`
	Flash          FlashCmd          `cmd:"" help:"program, verify, and reset the target"`
	Reset          ResetCmd          `cmd:"" help:"reset the target, optionally waiting for RTT readiness"`
	WaitRTTReady   WaitRTTReadyCmd   `cmd:"wait_rtt_ready" help:"poll the debug server until it reports RTT channels"`
	WaitBootMarker WaitBootMarkerCmd `cmd:"wait_boot_marker" help:"watch the RTT text channel for a boot marker"`
	DecodeLog      DecodeLogCmd      `cmd:"decode_log" help:"decode the binary RTT stream against a token database"`
	Pipeline       PipelineCmd       `cmd:"" help:"run the full build/flash/capture/decode pipeline"`
	FixCompileDB   FixCompileDBCmd   `cmd:"fix_compile_db" help:"rewrite container-absolute paths in compile_commands.json"`
	History        HistoryCmd        `cmd:"" help:"list or show past run results"`
	Completion     kongcompletion.Cmd `cmd:"" help:"print shell completion scripts"`
	Version        VersionCmd        `cmd:"" help:"print version information"`
}

func main() {
	var cli CLI

	parser := kong.Must(&cli,
		kong.Configuration(kongyaml.Loader, "~/.hilctl.yaml"),
		kong.Description("Host-side HIL orchestration core: flash, supervise, capture, decode."),
		kong.UsageOnError(),
	)
	kongcompletion.Register(parser)

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	closer, err := hlog.Init(hlog.Options{Level: cli.LogLevel, FilePath: cli.LogFile, Verbose: cli.Verbose})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging init failed: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	cfg, err := config.Load(expandHome(cli.ConfigFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if cli.OTLP != "" {
		cfg.OTLPEndpoint = cli.OTLP
	}

	ctx := context.Background()
	shutdownTrace, err := trace.Configure(ctx, cfg.OTLPEndpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tracing init failed: %v\n", err)
		os.Exit(1)
	}
	defer shutdownTrace(ctx)

	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history store init failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	runCtx := &Context{Context: ctx, Config: cfg, History: store, Verbose: cli.Verbose, JSON: cli.JSON}
	err = kctx.Run(runCtx)
	kctx.FatalIfErrorf(err)
}

func expandHome(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}

// serverConfig builds an openocd.Config from the shared Context defaults.
func serverConfig(rc *Context) (openocd.Config, error) {
	loc, err := openocd.Locate(rc.Config.OpenOCDPath)
	if err != nil {
		return openocd.Config{}, err
	}
	return openocd.Config{
		Location:     loc,
		InterfaceCfg: rc.Config.InterfaceCfg,
		TargetCfg:    rc.Config.TargetCfg,
		Ports:        rc.Config.Ports,
	}, nil
}
