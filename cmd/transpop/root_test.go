package main

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/oukeidos/transpop/internal/files"
	"github.com/oukeidos/transpop/internal/version"
)

func TestRoot_UnknownCommand(t *testing.T) {
	_, err := executeCommand(t, "transcribe")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRoot_InvalidEnvConfig(t *testing.T) {
	t.Setenv("TRANSPOP_LOG_LEVEL", "loud")
	if _, err := executeCommand(t, "about"); err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestRoot_LogFileThroughSymlinkRejected(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("creating symlinks needs privileges on Windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "shared.log")
	if err := os.WriteFile(target, []byte("before\n"), 0600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	link := filepath.Join(dir, "transpop.log")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	_, err := executeCommand(t, "--log-file", link, "about")
	var se *files.SymlinkError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want a symlink rejection", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "before\n" {
		t.Fatalf("log target written through link: %q", data)
	}
}

func TestList(t *testing.T) {
	out, err := executeCommand(t, "list")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	for _, want := range []string{"Tiếng Việt", "[zh-Hans]", "ollama", "groq", "(API key)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if strings.TrimSpace(out) != version.Info() {
		t.Fatalf("out = %q", out)
	}
}

func TestTranslateHelpListsFlags(t *testing.T) {
	out, err := executeCommand(t, "translate", "--help")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	for _, want := range []string{"--provider", "--model", "--source", "--target", "--backend", "Examples:", "transpop translate --source auto"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRootUsageListsInvokeForms(t *testing.T) {
	out, err := executeCommand(t, "--help")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	for _, want := range []string{"transpop translate|correct|refine", "transpop serve [flags]", "Commands:", "--settings"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
