// Package compiledb rewrites a compilation-database document's docker-mounted
// path prefix to the host project root after a containerized build (spec
// §4.4, §4.13), and locates that document under a build directory.
package compiledb

import "strings"

// DefaultDockerPrefix is the conventional mount point for the project root
// inside the build container (spec §3).
const DefaultDockerPrefix = "/workspace/"

// Filter rewrites every occurrence of dockerPrefix in contents to
// workspaceRoot followed by a path separator. Pure and idempotent: applying
// it twice yields the same output as applying it once, because after the
// first pass no occurrence of dockerPrefix remains (spec §4.4, §8 fixup
// idempotence property) — unless workspaceRoot itself happens to contain
// dockerPrefix as a substring, which callers must avoid.
func Filter(contents, dockerPrefix, workspaceRoot string) string {
	if dockerPrefix == "" {
		dockerPrefix = DefaultDockerPrefix
	}
	replacement := strings.TrimSuffix(workspaceRoot, "/") + "/"
	return strings.ReplaceAll(contents, dockerPrefix, replacement)
}

// CountSubstitutions reports how many occurrences of dockerPrefix are
// present in contents, for the Build Result Fixup's substitution count
// (spec §4.13).
func CountSubstitutions(contents, dockerPrefix string) int {
	if dockerPrefix == "" {
		dockerPrefix = DefaultDockerPrefix
	}
	return strings.Count(contents, dockerPrefix)
}
