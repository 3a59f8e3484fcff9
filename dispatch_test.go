package passbridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lengthSigner returns the payload JSON as the token so token length
// tracks payload size exactly.
type lengthSigner struct {
	calls []Payload
}

func (s *lengthSigner) Sign(payload Payload) (string, error) {
	s.calls = append(s.calls, payload)
	out, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type recordingPersister struct {
	mu       sync.Mutex
	classes  []string
	objects  []string
	classErr error
}

func (p *recordingPersister) PersistClass(_ context.Context, prefix string, class json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.classes = append(p.classes, prefix+":"+string(class))
	return p.classErr
}

func (p *recordingPersister) PersistObject(_ context.Context, prefix string, object json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects = append(p.objects, prefix+":"+string(object))
	return nil
}

func padded(id string, n int) json.RawMessage {
	out, _ := json.Marshal(map[string]string{"id": id, "note": strings.Repeat("x", n)})
	return out
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestExceeds(t *testing.T) {
	assert.False(t, exceeds(strings.Repeat("a", 1800), 1800))
	assert.True(t, exceeds(strings.Repeat("a", 1801), 1800))
}

func TestIssueSmallPayloadStaysFull(t *testing.T) {
	signer := &lengthSigner{}
	persister := &recordingPersister{}
	reg := prometheus.NewRegistry()
	d, err := NewDispatcher(nil, signer, WithPersister(persister), WithDispatchMetrics(NewDispatchMetrics(reg)))
	require.NoError(t, err)

	payload := Payload{Prefix: "generic", Class: padded("1.c", 10), Object: padded("1.o", 10)}
	token, err := d.Issue(context.Background(), payload)
	require.NoError(t, err)
	assert.Contains(t, token, "genericClasses")
	assert.Len(t, signer.calls, 1)
	assert.Empty(t, persister.classes)
	assert.Empty(t, persister.objects)
	assert.Equal(t, 1.0, counterValue(t, reg, "passbridge_dispatch_tokens_total", map[string]string{"stage": "full"}))
}

func TestIssueStripsClass(t *testing.T) {
	signer := &lengthSigner{}
	persister := &recordingPersister{}
	d, err := NewDispatcher(nil, signer, WithPersister(persister))
	require.NoError(t, err)

	payload := Payload{Prefix: "offer", Class: padded("1.c", 2000), Object: padded("1.o", 100)}
	token, err := d.Issue(context.Background(), payload)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(token), 1800)
	assert.NotContains(t, token, "offerClasses")
	assert.Len(t, signer.calls, 2)
	require.Len(t, persister.classes, 1)
	assert.True(t, strings.HasPrefix(persister.classes[0], "offer:"))
	assert.Empty(t, persister.objects)
}

func TestIssueFallsBackToMinimalObject(t *testing.T) {
	signer := &lengthSigner{}
	persister := &recordingPersister{classErr: errors.New("quota")}
	reg := prometheus.NewRegistry()
	cfg := &Config{Wallet: WalletConfig{MaxTokenLength: 500}}
	d, err := NewDispatcher(cfg, signer, WithPersister(persister), WithDispatchMetrics(NewDispatchMetrics(reg)))
	require.NoError(t, err)

	payload := Payload{Prefix: "loyalty", Class: padded("1.c", 600), Object: padded("1.o", 600)}
	token, err := d.Issue(context.Background(), payload)
	require.NoError(t, err, "persistence failures must not abort dispatch")
	assert.JSONEq(t, `{"loyaltyObjects":[{"id":"1.o"}]}`, token)
	assert.Len(t, signer.calls, 3)
	assert.Len(t, persister.classes, 1)
	assert.Len(t, persister.objects, 1)

	assert.Equal(t, 1.0, counterValue(t, reg, "passbridge_dispatch_tokens_total", map[string]string{"stage": "object_minimal"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "passbridge_dispatch_persist_failures_total", map[string]string{"resource": "class"}))
}

func TestIssueWithoutPersisterStillShrinks(t *testing.T) {
	signer := &lengthSigner{}
	d, err := NewDispatcher(&Config{Wallet: WalletConfig{MaxTokenLength: 100}}, signer)
	require.NoError(t, err)

	payload := Payload{Prefix: "generic", Class: padded("1.c", 300), Object: padded("1.o", 300)}
	token, err := d.Issue(context.Background(), payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"genericObjects":[{"id":"1.o"}]}`, token)
}

func TestIssueObjectWithoutID(t *testing.T) {
	d, err := NewDispatcher(&Config{Wallet: WalletConfig{MaxTokenLength: 10}}, &lengthSigner{})
	require.NoError(t, err)
	_, err = d.Issue(context.Background(), Payload{Prefix: "generic", Object: json.RawMessage(`{"note":"long enough"}`)})
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrCodeInvalidPayload, perr.Code)
}

func TestIssueWithTokenSigner(t *testing.T) {
	signer, err := NewTokenSigner("a@example.com", newRSAKeyPEM(t), "", nil)
	require.NoError(t, err)
	d, err := NewDispatcher(nil, signer)
	require.NoError(t, err)

	payload := Payload{Prefix: "generic", Class: padded("1.c", 3000), Object: padded("1.o", 50)}
	token, err := d.Issue(context.Background(), payload)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(token), 1800)

	back, err := PayloadFromToken(token)
	require.NoError(t, err)
	assert.Empty(t, back.Class)
	assert.True(t, strings.HasPrefix(d.SaveURL(token), "https://pay.google.com/gp/v/save/"))
}

func TestNewDispatcherRequiresSigner(t *testing.T) {
	_, err := NewDispatcher(nil, nil)
	require.Error(t, err)
}
