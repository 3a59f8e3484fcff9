package passbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxImageSize = 5 << 20

// HTTPImageResolverConfig customizes the default image resolver.
type HTTPImageResolverConfig struct {
	Client  *http.Client
	Timeout time.Duration
	// AllowLocalhost lets Host hand out loopback URIs. Wallet servers
	// cannot reach them, so it is only useful in tests.
	AllowLocalhost bool
}

// HTTPImageResolver fetches images over HTTP and hosts only images that
// already have a public URI.
type HTTPImageResolver struct {
	client         *http.Client
	timeout        time.Duration
	allowLocalhost bool
}

// NewHTTPImageResolver builds the default ImageResolver.
func NewHTTPImageResolver(cfg HTTPImageResolverConfig) *HTTPImageResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		}
	}
	return &HTTPImageResolver{client: client, timeout: timeout, allowLocalhost: cfg.AllowLocalhost}
}

// Fetch downloads the image at uri.
func (r *HTTPImageResolver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse image uri: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported image scheme %q", u.Scheme)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, errors.New("image exceeds size limit")
	}
	return data, nil
}

// Host returns the image URI when it is publicly reachable. Raw image bytes
// need an object store, so they yield an empty URI.
func (r *HTTPImageResolver) Host(_ context.Context, img Image) (string, error) {
	if img.URI == "" {
		return "", nil
	}
	u, err := url.Parse(img.URI)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", nil
	}
	if !r.allowLocalhost && isLocalHost(u.Hostname()) {
		return "", nil
	}
	return img.URI, nil
}

func isLocalHost(host string) bool {
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}
