package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestServeCommandHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(buf.String(), "Start the Drumscribe API server") {
		t.Errorf("Help output missing description: %q", buf.String())
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCmd()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("Failed to find serve command: %v", err)
	}

	for _, flag := range []string{"host", "port"} {
		if serveCmd.Flags().Lookup(flag) == nil {
			t.Errorf("serve command missing --%s flag", flag)
		}
	}
}

func TestServeCommandInvalidPort(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve", "--port", "invalid"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for non-numeric port")
	}
}
