package passbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image")

// buildZip writes files into an in-memory archive.
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func archiveEntries(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	entries, err := readArchive(data)
	require.NoError(t, err)
	return entries
}

func passJSON(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(archiveEntries(t, data)[archivePassFile], &doc))
	return doc
}

func decodeJSON(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

type fakeImages struct {
	mu      sync.Mutex
	fetched []string
}

func (f *fakeImages) Fetch(_ context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, uri)
	f.mu.Unlock()
	if uri == "" {
		return nil, errors.New("empty uri")
	}
	return pngBytes, nil
}

func (f *fakeImages) Host(_ context.Context, img Image) (string, error) {
	if img.URI != "" {
		return img.URI, nil
	}
	if len(img.Data) > 0 {
		return "https://images.example.com/logo.png", nil
	}
	return "", nil
}

type fakeSigner struct {
	signed [][]byte
	err    error
}

func (s *fakeSigner) Sign(_ context.Context, manifest []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.signed = append(s.signed, append([]byte(nil), manifest...))
	return []byte("signature-bytes"), nil
}

func newTestConverter(t *testing.T, cfg *Config, opts ...ConverterOption) *Converter {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	base := []ConverterOption{WithImageResolver(&fakeImages{}), WithArchiveSigner(nil)}
	c, err := NewConverter(cfg, append(base, opts...)...)
	require.NoError(t, err)
	return c
}
