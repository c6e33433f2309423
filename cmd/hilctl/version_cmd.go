package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/GurkeX/hil-host-core/version"
)

// VersionCmd prints build/version information, grounded on the teacher
// CLI's own version_cmd.go.
type VersionCmd struct{}

func (c *VersionCmd) Run(rc *Context) error {
	info := version.Get()
	if rc.JSON {
		return json.NewEncoder(os.Stdout).Encode(info)
	}
	fmt.Printf("Git Repository: %s\n", info.GitRepo)
	fmt.Printf("Git Branch: %s\n", info.GitBranch)
	fmt.Printf("Git Commit: %s\n", info.GitCommit)
	fmt.Printf("Build Time: %s\n", info.BuildTime)
	if info.BuildInfo != nil {
		fmt.Printf("Go Version: %s\n", info.BuildInfo.GoVersion)
	}
	return nil
}
