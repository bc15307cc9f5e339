package main

import (
	"testing"
)

func TestServeCmd_Properties(t *testing.T) {
	cmd := newServeCmd()
	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want %q", cmd.Use, "serve")
	}
	if cmd.Flags().Lookup("issue-token") == nil {
		t.Error("serve command should register an --issue-token flag")
	}
	if cmd.Flags().Lookup("signing-key") == nil {
		t.Error("serve command should register a --signing-key flag")
	}
}

func TestCheckSigningKeyFingerprint_RequiresKey(t *testing.T) {
	if err := checkSigningKeyFingerprint(t.TempDir(), ""); err == nil {
		t.Error("checkSigningKeyFingerprint() with an empty key should error")
	}
}

func TestCheckSigningKeyFingerprint_FirstRunPersistsThenVerifies(t *testing.T) {
	dir := t.TempDir()

	if err := checkSigningKeyFingerprint(dir, "super-secret"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := checkSigningKeyFingerprint(dir, "super-secret"); err != nil {
		t.Fatalf("second run with matching key: %v", err)
	}
	if err := checkSigningKeyFingerprint(dir, "a-different-secret"); err == nil {
		t.Error("checkSigningKeyFingerprint() should reject a key that no longer matches the recorded fingerprint")
	}
}

func TestRunIssueToken_RequiresUser(t *testing.T) {
	cfg := &serveConfig{
		signingKey:  "test-secret",
		keyStateDir: t.TempDir(),
	}
	if err := runIssueToken(cfg); err == nil {
		t.Error("runIssueToken() without --user should return an error")
	}
}

func TestRunIssueToken_MintsToken(t *testing.T) {
	cfg := &serveConfig{
		signingKey:  "test-secret",
		keyStateDir: t.TempDir(),
		tokenUser:   "user-1",
		tokenEmail:  "user@example.com",
		tokenRoles:  []string{"operator"},
	}
	if err := runIssueToken(cfg); err != nil {
		t.Fatalf("runIssueToken() error = %v", err)
	}
}
