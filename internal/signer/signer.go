// Package signer invokes the air-gapped signer executable as a
// subprocess, one step at a time. The binary itself, its key material,
// and the signed payload format are opaque to the core (spec §6).
package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// Config carries everything needed to invoke the signer binary.
type Config struct {
	ExecutablePath string
	BasePath       string
	Network        string
	Password       string
}

// Signer runs the external signer subprocess.
type Signer struct {
	cfg Config
}

// New constructs a Signer from cfg.
func New(cfg Config) *Signer {
	return &Signer{cfg: cfg}
}

// SignStep writes unsigned to a scoped temp file, invokes the signer
// binary, and returns the signed payload read back from its output file.
// Temp files are always cleaned up, including on error paths.
func (s *Signer) SignStep(ctx context.Context, unsigned json.RawMessage) (json.RawMessage, error) {
	inFile, err := os.CreateTemp("", "paymentproc-unsigned-*.json")
	if err != nil {
		return nil, fmt.Errorf("signer: create input temp file: %w", err)
	}
	inPath := inFile.Name()
	defer os.Remove(inPath)

	if _, err := inFile.Write(unsigned); err != nil {
		inFile.Close()
		return nil, fmt.Errorf("signer: write input temp file: %w", err)
	}
	if err := inFile.Close(); err != nil {
		return nil, fmt.Errorf("signer: close input temp file: %w", err)
	}

	outPath := inPath + ".signed"
	defer os.Remove(outPath)

	args := []string{
		"--auto-exit",
		"--base-path", s.cfg.BasePath,
		"--network", s.cfg.Network,
		"--skip-recovery",
		"sign-one-sided-transaction",
		"--input-file", inPath,
		"--output-file", outPath,
	}

	cmd := exec.CommandContext(ctx, s.cfg.ExecutablePath, args...)
	// The password is passed via the environment only; it must never
	// appear in argv (visible in process listings) or in logs.
	cmd.Env = append(os.Environ(), "SIGNER_PASSWORD="+s.cfg.Password)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("signer: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("signer: start: %w", err)
	}
	errOutput := drainQuietly(stderr)
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("signer: exit error: %w: %s", err, errOutput)
	}

	signed, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("signer: read output file: %w", err)
	}
	return json.RawMessage(signed), nil
}

func drainQuietly(r interface{ Read([]byte) (int, error) }) string {
	buf := make([]byte, 4096)
	total := make([]byte, 0, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total = append(total, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	return string(total)
}
