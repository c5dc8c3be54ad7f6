package testsupport

import (
	"os"
	"testing"
)

// WriteScript writes an executable shell script with the given body and
// returns its path.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}
