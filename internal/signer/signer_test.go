package signer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// fakeSignerScript writes a shell script standing in for the real signer
// binary: it copies its --input-file to --output-file verbatim, so
// SignStep's round trip can be exercised without the real executable.
func fakeSignerScript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-signer.sh")
	script := `#!/bin/sh
while [ "$#" -gt 0 ]; do
  case "$1" in
    --input-file) in="$2"; shift 2 ;;
    --output-file) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
cp "$in" "$out"
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake signer script: %v", err)
	}
	return path
}

func TestSigner_SignStep_RoundTrips(t *testing.T) {
	sg := New(Config{
		ExecutablePath: fakeSignerScript(t),
		BasePath:       t.TempDir(),
		Network:        "testnet",
		Password:       "hunter2",
	})

	unsigned := json.RawMessage(`{"inputs":[{"commitment":"c1","value":1000}]}`)
	signed, err := sg.SignStep(context.Background(), unsigned)
	if err != nil {
		t.Fatalf("SignStep: %v", err)
	}
	if string(signed) != string(unsigned) {
		t.Errorf("signed = %s, want %s (fake signer copies input to output)", signed, unsigned)
	}
}

func TestSigner_SignStep_PropagatesExitError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "failing-signer.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho boom >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write failing signer script: %v", err)
	}

	sg := New(Config{ExecutablePath: path, BasePath: t.TempDir(), Network: "testnet", Password: "x"})
	if _, err := sg.SignStep(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("SignStep with a failing executable, want error")
	}
}
