package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLifecycleCmd(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	yaml := "auth:\n  mode: local\n  secret: s3cret\nlifecycle:\n  strict: true\n"
	if err := os.WriteFile(cfg, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	configPath = cfg
	t.Cleanup(func() { configPath = "" })

	var out bytes.Buffer
	cmd := lifecycleCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := out.String()
	for _, want := range []string{"lifecycle.strict = true", "pending    -> inprogress", "inprogress -> done"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestTokenCmdRequiresLocalMode(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	yaml := "auth:\n  mode: firebase\n  firebase_project_id: blood-app\n"
	if err := os.WriteFile(cfg, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	configPath = cfg
	t.Cleanup(func() { configPath = "" })

	cmd := tokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"ann@x.io"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "local mode") {
		t.Fatalf("err = %v, want local mode error", err)
	}
}
