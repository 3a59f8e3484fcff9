package passbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SaveTokenSigner signs a payload into a save token.
type SaveTokenSigner interface {
	Sign(payload Payload) (string, error)
}

// Persister stores classes and objects with the wallet platform so a token
// can reference them by id.
type Persister interface {
	PersistClass(ctx context.Context, prefix string, class json.RawMessage) error
	PersistObject(ctx context.Context, prefix string, object json.RawMessage) error
}

type dispatchStage int

const (
	stageFull dispatchStage = iota
	stageClassStripped
	stageObjectMinimal
)

func (s dispatchStage) String() string {
	switch s {
	case stageFull:
		return "full"
	case stageClassStripped:
		return "class_stripped"
	case stageObjectMinimal:
		return "object_minimal"
	}
	return "unknown"
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPersister sets where stripped classes and objects are stored.
func WithPersister(p Persister) DispatcherOption {
	return func(d *Dispatcher) {
		d.persister = p
	}
}

// WithDispatchMetrics enables dispatch counters.
func WithDispatchMetrics(m *DispatchMetrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithDispatchLogger sets the logger used when none is bound to the context.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// Dispatcher turns payloads into save tokens that fit the save link limit.
type Dispatcher struct {
	signer    SaveTokenSigner
	persister Persister
	maxLength int
	saveURL   string
	metrics   *DispatchMetrics
	logger    *slog.Logger
}

// NewDispatcher builds a Dispatcher around signer.
func NewDispatcher(cfg *Config, signer SaveTokenSigner, opts ...DispatcherOption) (*Dispatcher, error) {
	if signer == nil {
		return nil, newError(ErrCodeInvalidConfig, errors.New("token signer is required"))
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clone := *cfg
	clone.normalize()
	d := &Dispatcher{
		signer:    signer,
		maxLength: clone.Wallet.MaxTokenLength,
		saveURL:   clone.Wallet.SaveURL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// exceeds is the size predicate evaluated after every encode attempt.
func exceeds(token string, limit int) bool {
	return len(token) > limit
}

// Issue signs the payload, shrinking it when the token is too long: first
// the class is persisted and dropped, then the object is persisted and
// reduced to its id. Persistence failures are logged and do not stop the
// fallback.
func (d *Dispatcher) Issue(ctx context.Context, payload Payload) (string, error) {
	logger := LoggerFromContext(ctx, d.logger).With("prefix", payload.Prefix)
	stage := stageFull
	for {
		token, err := d.sign(payload)
		if err != nil {
			return "", err
		}
		if stage == stageObjectMinimal || !exceeds(token, d.maxLength) {
			d.metrics.incrementStage(stage, payload.Prefix)
			logger.Debug("save token issued", "stage", stage.String(), "length", len(token))
			return token, nil
		}
		logger.Info("save token too long", "stage", stage.String(), "length", len(token), "limit", d.maxLength)

		switch stage {
		case stageFull:
			stage = stageClassStripped
			if len(payload.Class) == 0 {
				continue
			}
			if err := d.persistClass(ctx, payload); err != nil {
				logger.Warn("class persistence failed", "error", err)
				d.metrics.incrementPersistFailure("class", payload.Prefix)
			}
			payload.Class = nil
		case stageClassStripped:
			stage = stageObjectMinimal
			if err := d.persistObject(ctx, payload); err != nil {
				logger.Warn("object persistence failed", "error", err)
				d.metrics.incrementPersistFailure("object", payload.Prefix)
			}
			minimal, err := minimalObject(payload)
			if err != nil {
				return "", err
			}
			payload.Object = minimal
		}
	}
}

// SaveURL returns the link that opens the save flow for token.
func (d *Dispatcher) SaveURL(token string) string {
	return d.saveURL + token
}

func (d *Dispatcher) sign(payload Payload) (string, error) {
	start := time.Now()
	defer d.metrics.observeSign(start)
	return d.signer.Sign(payload)
}

func (d *Dispatcher) persistClass(ctx context.Context, payload Payload) error {
	if d.persister == nil {
		return newError(ErrCodeRemotePersist, errors.New("no persister configured"))
	}
	if err := d.persister.PersistClass(ctx, payload.Prefix, payload.Class); err != nil {
		return newError(ErrCodeRemotePersist, err)
	}
	return nil
}

func (d *Dispatcher) persistObject(ctx context.Context, payload Payload) error {
	if d.persister == nil {
		return newError(ErrCodeRemotePersist, errors.New("no persister configured"))
	}
	if err := d.persister.PersistObject(ctx, payload.Prefix, payload.Object); err != nil {
		return newError(ErrCodeRemotePersist, err)
	}
	return nil
}

func minimalObject(payload Payload) (json.RawMessage, error) {
	id, err := payload.objectID()
	if err != nil {
		return nil, newError(ErrCodeInvalidPayload, fmt.Errorf("read object id: %w", err))
	}
	if id == "" {
		return nil, newError(ErrCodeInvalidPayload, errors.New("object has no id"))
	}
	return json.Marshal(struct {
		ID string `json:"id"`
	}{ID: id})
}
