package passbridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ImageResolver bridges the codecs to image storage. Fetch loads the bytes
// behind a reference when building an archive. Host returns a public URI
// for an image when building a payload; an empty URI means the image
// cannot be referenced and is omitted.
type ImageResolver interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Host(ctx context.Context, img Image) (string, error)
}

// ConverterOption customizes a Converter.
type ConverterOption func(*Converter)

// WithImageResolver sets the resolver used for logos and fallback icons.
func WithImageResolver(r ImageResolver) ConverterOption {
	return func(c *Converter) {
		c.images = r
	}
}

// WithArchiveSigner overrides the manifest signer. A nil signer produces
// unsigned archives.
func WithArchiveSigner(s ArchiveSigner) ConverterOption {
	return func(c *Converter) {
		c.signer = s
		c.signerSet = true
	}
}

// WithLogger sets the logger used when no logger is bound to the context.
func WithLogger(logger *slog.Logger) ConverterOption {
	return func(c *Converter) {
		c.logger = logger
	}
}

// Converter translates passes between the archive and payload formats.
// It holds no per-conversion state and is safe for concurrent use.
type Converter struct {
	cfg       *Config
	images    ImageResolver
	signer    ArchiveSigner
	signerSet bool
	logger    *slog.Logger
}

// NewConverter builds a Converter. When cfg carries complete signing
// material and no signer option is given, archives are signed with
// openssl.
func NewConverter(cfg *Config, opts ...ConverterOption) (*Converter, error) {
	if cfg == nil {
		return nil, newError(ErrCodeInvalidConfig, errors.New("config is required"))
	}
	clone := *cfg
	clone.normalize()
	if err := clone.validate(); err != nil {
		return nil, newError(ErrCodeInvalidConfig, err)
	}

	c := &Converter{cfg: &clone}
	for _, opt := range opts {
		opt(c)
	}
	if c.images == nil {
		c.images = NewHTTPImageResolver(HTTPImageResolverConfig{})
	}
	if !c.signerSet && clone.Signing.complete() {
		c.signer = NewOpenSSLSigner(clone.Signing)
	}
	return c, nil
}

// Config returns the normalized configuration in use.
func (c *Converter) Config() *Config {
	return c.cfg
}

// IssueUpdatable attaches update-protocol credentials to the pass before it
// is encoded as an archive.
func (c *Converter) IssueUpdatable(p *Pass) {
	if c.cfg.WebServiceURL == "" {
		return
	}
	p.WebServiceURL = c.cfg.WebServiceURL
	if p.AuthenticationToken == "" {
		p.AuthenticationToken = uuid.NewString()
	}
}

func (c *Converter) log(ctx context.Context) *slog.Logger {
	return LoggerFromContext(ctx, c.logger)
}
