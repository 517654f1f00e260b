package confdir

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
	"github.com/sirosfoundation/go-xrd/pkg/transport"
)

// Download is one successfully retrieved configuration bundle, before
// parsing. Source records which anchor URL answered.
type Download struct {
	Data        []byte
	ContentType string
	Source      string
}

// Fetcher retrieves configuration bundles from an anchor's sources. Source
// URLs are tried in listed order and each is attempted exactly once; any
// further retrying is the caller's concern.
type Fetcher struct {
	client *transport.Client
	secure bool
	logger *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherLogger sets the logger used for per-source debug output.
func WithFetcherLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a fetcher with the given transport configuration.
// A nil config uses transport defaults.
func NewFetcher(config *transport.Config, opts ...FetcherOption) *Fetcher {
	if config == nil {
		config = transport.DefaultConfig()
	}
	f := &Fetcher{
		client: transport.NewClient(config),
		secure: config.Secure(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the configuration bundle from the first reachable source
// of the anchor. When every source fails, the last failure is surfaced as
// ErrTimeout or ErrNetwork with its detail preserved.
func (f *Fetcher) Fetch(ctx context.Context, anchor *Anchor) (*Download, error) {
	if anchor == nil || len(anchor.Sources) == 0 {
		return nil, fmt.Errorf("%w: anchor lists no configuration sources", fault.ErrNetwork)
	}

	var lastErr error
	for _, source := range anchor.Sources {
		sourceURL := sourceURL(source.DownloadURL, f.secure)

		resp, err := f.client.Get(ctx, sourceURL, nil)
		if err != nil {
			f.logger.Debug("configuration source failed",
				zap.String("url", sourceURL),
				zap.Error(err))
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			f.logger.Debug("configuration source returned error status",
				zap.String("url", sourceURL),
				zap.Int("status", resp.StatusCode))
			lastErr = fmt.Errorf("source %s returned status %d", sourceURL, resp.StatusCode)
			continue
		}

		f.logger.Debug("configuration bundle downloaded",
			zap.String("url", sourceURL),
			zap.Int("bytes", len(resp.Body)))
		return &Download{
			Data:        resp.Body,
			ContentType: resp.Header.Get("Content-Type"),
			Source:      sourceURL,
		}, nil
	}

	if fault.IsTimeout(lastErr) {
		return nil, fmt.Errorf("%w: all configuration sources exhausted: %v", fault.ErrTimeout, lastErr)
	}
	return nil, fmt.Errorf("%w: all configuration sources exhausted: %v", fault.ErrNetwork, lastErr)
}

// FetchDirectory downloads and parses the configuration bundle in one step.
// The result is unverified.
func (f *Fetcher) FetchDirectory(ctx context.Context, anchor *Anchor) (*Directory, error) {
	download, err := f.Fetch(ctx, anchor)
	if err != nil {
		return nil, err
	}
	return ParseDirectory(download.Data, download.ContentType)
}

// sourceURL normalizes an anchor download URL: bare addresses get a scheme
// and an empty path defaults to the internalconf directory.
func sourceURL(raw string, secure bool) string {
	normalized := transport.NormalizeURL(raw, secure)
	parsed, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	if parsed.Path == "" {
		parsed.Path = "/internalconf"
	} else if parsed.Path == "/" {
		parsed.Path = "/internalconf"
	}
	return parsed.String()
}
