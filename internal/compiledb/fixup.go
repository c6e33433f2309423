package compiledb

import (
	"fmt"
	"path/filepath"

	"github.com/GurkeX/hil-host-core/internal/result"
)

// CompileCommandsFilename is the standard name of the compilation-database
// document (spec §6 on-disk artifacts).
const CompileCommandsFilename = "compile_commands.json"

// FixupReport is the stage-level detail the Build Result Fixup contributes
// (spec §4.13): how many prefix occurrences were rewritten. Zero means the
// build was native, not containerized.
type FixupReport struct {
	Path          string
	Substitutions int
}

// Fixup locates compile_commands.json under buildDir and rewrites it in
// place with Filter, idempotent and safe to re-run (spec §4.13).
func Fixup(ops FileOps, buildDir, dockerPrefix, workspaceRoot string) (*FixupReport, error) {
	path := filepath.Join(buildDir, CompileCommandsFilename)
	raw, err := ops.ReadFile(path)
	if err != nil {
		return nil, result.NewError(result.KindNotFound, fmt.Sprintf("compilation database %s", path), err)
	}

	contents := string(raw)
	n := CountSubstitutions(contents, dockerPrefix)
	if n == 0 {
		return &FixupReport{Path: path, Substitutions: 0}, nil
	}

	fixed := Filter(contents, dockerPrefix, workspaceRoot)
	if err := ops.WriteFile(path, []byte(fixed), 0o644); err != nil {
		return nil, result.NewError(result.KindIoError, fmt.Sprintf("writing %s", path), err)
	}
	return &FixupReport{Path: path, Substitutions: n}, nil
}
