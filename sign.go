package passbridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ArchiveSigner produces the detached signature stored next to the manifest.
type ArchiveSigner interface {
	Sign(ctx context.Context, manifest []byte) ([]byte, error)
}

// runOpenSSL executes openssl and returns its stdout.
var runOpenSSL = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// OpenSSLSigner signs manifests with `openssl smime`, producing a DER
// encoded PKCS#7 detached signature.
type OpenSSLSigner struct {
	cfg SigningConfig
}

// NewOpenSSLSigner builds a signer from the configured certificate material.
func NewOpenSSLSigner(cfg SigningConfig) *OpenSSLSigner {
	if cfg.OpenSSL == "" {
		cfg.OpenSSL = "openssl"
	}
	return &OpenSSLSigner{cfg: cfg}
}

// Sign writes the manifest to a scratch directory and signs it. Signing is
// a blocking external call.
func (s *OpenSSLSigner) Sign(ctx context.Context, manifest []byte) ([]byte, error) {
	if !s.cfg.complete() {
		return nil, newError(ErrCodeSigning, errors.New("signing material incomplete"))
	}
	dir, err := os.MkdirTemp("", "passbridge-sign-")
	if err != nil {
		return nil, newError(ErrCodeSigning, err)
	}
	defer os.RemoveAll(dir)

	manifestPath := filepath.Join(dir, archiveManifestFile)
	if err := os.WriteFile(manifestPath, manifest, 0o600); err != nil {
		return nil, newError(ErrCodeSigning, err)
	}

	args := []string{
		"smime", "-binary", "-sign",
		"-certfile", s.cfg.TrustedRoot,
		"-signer", s.cfg.Certificate,
		"-inkey", s.cfg.Key,
		"-in", manifestPath,
		"-outform", "DER",
	}
	if s.cfg.KeyPassword != "" {
		args = append(args, "-passin", "pass:"+s.cfg.KeyPassword)
	}
	signature, err := runOpenSSL(ctx, s.cfg.OpenSSL, args...)
	if err != nil {
		return nil, newError(ErrCodeSigning, err)
	}
	if len(signature) == 0 {
		return nil, newError(ErrCodeSigning, errors.New("openssl produced an empty signature"))
	}
	return signature, nil
}
