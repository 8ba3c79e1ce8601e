package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// findInboxdBinary finds the inboxd binary under test: $INBOXD_BIN when
// set, otherwise the first inboxd on PATH.
func findInboxdBinary() (string, error) {
	if bin := os.Getenv("INBOXD_BIN"); bin != "" {
		return bin, nil
	}
	path, err := exec.LookPath("inboxd")
	if err != nil {
		return "", fmt.Errorf("could not find 'inboxd' binary in PATH; build it with 'go build -o bin/inboxd ./cmd/inboxd' and add bin to PATH")
	}
	return path, nil
}

// writeGlobalConfig writes inbox.yml into the sandboxed global config directory.
func writeGlobalConfig(ctx *harness.Context, content string) error {
	dir := filepath.Join(ctx.HomeDir(), ".config", "inboxd")
	if err := fs.CreateDir(dir); err != nil {
		return fmt.Errorf("failed to create global config dir: %w", err)
	}
	return fs.WriteString(filepath.Join(dir, "inbox.yml"), content)
}
