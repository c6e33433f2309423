package openocd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocateExplicitPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "bin", binaryName)
	if err := os.MkdirAll(filepath.Dir(bin), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	loc, err := Locate(bin)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.BinaryPath != bin {
		t.Fatalf("BinaryPath = %q, want %q", loc.BinaryPath, bin)
	}
	wantScripts := filepath.Join(dir, "share", "openocd", "scripts")
	if loc.ScriptsPath != wantScripts {
		t.Fatalf("ScriptsPath = %q, want %q", loc.ScriptsPath, wantScripts)
	}
}

func TestLocateNotFoundListsEveryPathTried(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := Locate(missing)
	if err == nil {
		t.Fatal("expected NotFound error")
	}
	if !strings.Contains(err.Error(), missing) {
		t.Fatalf("error does not list the explicit path tried: %v", err)
	}
}

func TestConfigToArgsOrdersPostInitAfterInit(t *testing.T) {
	cfg := Config{
		Location:     Location{ScriptsPath: "/opt/openocd/scripts"},
		InterfaceCfg: "interface/cmsis-dap.cfg",
		TargetCfg:    "target/mcu.cfg",
		Ports:        Ports{TCL: 6666, GDB: 3333},
		PostInitCommands: []string{
			"rtt setup 0x20000000 0x10000 \"SEGGER RTT\"",
			"rtt start",
			"rtt server start 9090 0",
		},
	}
	args := cfg.toArgs()
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "init; rtt setup") {
		t.Fatalf("expected post-init commands chained after init, got: %s", joined)
	}
}
