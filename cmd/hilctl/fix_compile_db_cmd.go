package main

import (
	"fmt"
	"os"
	"time"

	"github.com/GurkeX/hil-host-core/internal/compiledb"
	"github.com/GurkeX/hil-host-core/internal/result"
)

// FixCompileDBCmd rewrites container-absolute paths in compile_commands.json
// in place (spec §4.13, §6).
type FixCompileDBCmd struct {
	BuildDir      string `default:"build" placeholder:"<dir>" help:"build directory containing compile_commands.json"`
	WorkspaceRoot string `placeholder:"<path>" help:"host workspace root to substitute in"`
	DockerPrefix  string `placeholder:"<prefix>" help:"container path prefix to strip (default /workspace/)"`
}

func (c *FixCompileDBCmd) Run(rc *Context) error {
	start := time.Now()
	workspaceRoot := c.WorkspaceRoot
	if workspaceRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			exitWith(rc, result.FromError("fix_compile_db", start, err))
		}
		workspaceRoot = wd
	}

	report, err := compiledb.Fixup(compiledb.NewDefaultFileOps(), c.BuildDir, c.DockerPrefix, workspaceRoot)
	if err != nil {
		exitWith(rc, result.FromError("fix_compile_db", start, err))
	}

	r := result.Success("fix_compile_db", start)
	r.Checks = map[string]result.Check{
		"substitutions": {Pass: true, Detail: fmt.Sprintf("%d path(s) rewritten in %s", report.Substitutions, report.Path), Advisory: true},
	}
	exitWith(rc, r)
	return nil
}
