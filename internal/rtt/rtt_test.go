package rtt

import (
	"context"
	"net"
	"testing"
	"time"
)

// TestWaitForBootMarkerChunked matches spec §8 scenario 8: the boot marker
// arrives split across four separate TCP reads.
func TestWaitForBootMarkerChunked(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	chunks := []string{
		"=== AI-",
		"Optimized ",
		"system\nStarting ",
		"FreeRTOS scheduler\n",
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for _, c := range chunks {
			_, _ = conn.Write([]byte(c))
			time.Sleep(20 * time.Millisecond)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	res := WaitForBootMarker(context.Background(), addr.IP.String(), addr.Port, "Starting FreeRTOS scheduler", 2*time.Second)
	if !res.Found {
		t.Fatalf("marker not found, advisory=%q bootlog=%q", res.Advisory, res.BootLog)
	}
}

func TestWaitForBootMarkerTimesOutAdvisory(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("boot log with no marker\n"))
		time.Sleep(500 * time.Millisecond)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	res := WaitForBootMarker(context.Background(), addr.IP.String(), addr.Port, "never-appears", 200*time.Millisecond)
	if res.Found {
		t.Fatal("expected marker not found")
	}
	if res.Advisory == "" {
		t.Fatal("expected an advisory note on timeout")
	}
}

func TestParseChannelList(t *testing.T) {
	if got := parseChannelList("  \n"); got != nil {
		t.Fatalf("parseChannelList(empty) = %v, want nil", got)
	}
	got := parseChannelList("channel0 channel1")
	if len(got) != 2 {
		t.Fatalf("parseChannelList = %v, want 2 entries", got)
	}
}
