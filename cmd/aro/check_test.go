package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckCmd_Properties(t *testing.T) {
	cmd := newCheckCmd()
	if cmd.Use != "check [file]" {
		t.Errorf("Use = %q, want %q", cmd.Use, "check [file]")
	}
}

func TestRunCheck_SucceedsOnValidSource(t *testing.T) {
	path := writeTempSource(t, `(Hello: Greeting) { <Extract> the <name: id> from the <request>. Publish as <name> <name>. }`)
	if err := runCheck(path); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}
}

func TestRunCheck_MissingFile(t *testing.T) {
	if err := runCheck(filepath.Join(t.TempDir(), "missing.aro")); err == nil {
		t.Error("runCheck() on a missing file should return an error")
	}
}

func writeTempSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.aro")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing fixture source: %v", err)
	}
	return path
}
