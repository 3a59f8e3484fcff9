package passbridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/walletobjects/v1"
)

// ServiceAccount holds the parts of a service-account key file used to
// sign save tokens.
type ServiceAccount struct {
	Email        string
	PrivateKey   []byte
	PrivateKeyID string
	// JSON is the raw key file, used to mint API access tokens.
	JSON []byte
}

// ParseServiceAccount reads a service-account key file.
func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	cfg, err := google.JWTConfigFromJSON(data, walletobjects.WalletObjectIssuerScope)
	if err != nil {
		return nil, newError(ErrCodeInvalidConfig, fmt.Errorf("parse service account: %w", err))
	}
	if cfg.Email == "" || len(cfg.PrivateKey) == 0 {
		return nil, newError(ErrCodeInvalidConfig, errors.New("service account has no client_email or private_key"))
	}
	return &ServiceAccount{
		Email:        cfg.Email,
		PrivateKey:   cfg.PrivateKey,
		PrivateKeyID: cfg.PrivateKeyID,
		JSON:         append([]byte(nil), data...),
	}, nil
}

// LoadServiceAccount reads and parses a service-account key file.
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	return ParseServiceAccount(data)
}

// TokenFactory allows callers to override how API token sources are built.
type TokenFactory func(ctx context.Context, account *ServiceAccount, scopes []string) (oauth2.TokenSource, error)

// CredentialProviderConfig defines how access tokens are issued.
type CredentialProviderConfig struct {
	// Account is used when set; otherwise application default
	// credentials are used.
	Account      *ServiceAccount
	TokenFactory TokenFactory
}

// CredentialProvider issues OAuth2 access tokens for the wallet API. It
// caches one token source per scope set.
type CredentialProvider struct {
	mu      sync.RWMutex
	factory TokenFactory
	account *ServiceAccount
	entries map[string]oauth2.TokenSource
}

// NewCredentialProvider constructs a CredentialProvider.
func NewCredentialProvider(cfg CredentialProviderConfig) *CredentialProvider {
	factory := cfg.TokenFactory
	if factory == nil {
		factory = defaultFactory
	}
	return &CredentialProvider{
		factory: factory,
		account: cfg.Account,
		entries: make(map[string]oauth2.TokenSource),
	}
}

// TokenSource returns the cached token source for scopes, defaulting to the
// wallet issuer scope.
func (p *CredentialProvider) TokenSource(ctx context.Context, scopes ...string) (oauth2.TokenSource, error) {
	if len(scopes) == 0 {
		scopes = []string{walletobjects.WalletObjectIssuerScope}
	}
	sorted := append([]string(nil), scopes...)
	sort.Strings(sorted)
	key := strings.Join(sorted, " ")

	p.mu.RLock()
	ts, ok := p.entries[key]
	p.mu.RUnlock()
	if ok {
		return ts, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if ts, ok = p.entries[key]; ok {
		return ts, nil
	}
	src, err := p.factory(persistentContext(ctx), p.account, sorted)
	if err != nil {
		return nil, err
	}
	ts = oauth2.ReuseTokenSource(nil, src)
	p.entries[key] = ts
	return ts, nil
}

// Token returns an access token for scopes.
func (p *CredentialProvider) Token(ctx context.Context, scopes ...string) (string, error) {
	ts, err := p.TokenSource(ctx, scopes...)
	if err != nil {
		return "", err
	}
	tok, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("empty access token returned")
	}
	return tok.AccessToken, nil
}

func defaultFactory(ctx context.Context, account *ServiceAccount, scopes []string) (oauth2.TokenSource, error) {
	if account != nil && len(account.JSON) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, account.JSON, scopes...)
		if err != nil {
			return nil, err
		}
		return creds.TokenSource, nil
	}
	return google.DefaultTokenSource(ctx, scopes...)
}

// persistentContext keeps request values but drops cancellation, since
// cached token sources outlive the call that created them.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	if _, ok := ctx.(*detachedContext); ok {
		return ctx
	}
	return &detachedContext{parent: ctx}
}

type detachedContext struct {
	parent context.Context
}

func (d *detachedContext) Deadline() (time.Time, bool) {
	return time.Time{}, false
}

func (d *detachedContext) Done() <-chan struct{} {
	return nil
}

func (d *detachedContext) Err() error {
	return nil
}

func (d *detachedContext) Value(key any) any {
	if d.parent == nil {
		return nil
	}
	return d.parent.Value(key)
}
