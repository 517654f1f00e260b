package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

// Recommended TLS 1.2 cipher suites
var RecommendedTLS12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// Config contains HTTPS client configuration. Certificates carries the
// optional client certificate for mutual TLS; RootCAs the optional CA bundle
// used to verify the server. Timeout applies per call.
type Config struct {
	MinTLSVersion      uint16
	MaxTLSVersion      uint16
	CipherSuites       []uint16
	Certificates       []tls.Certificate
	RootCAs            *x509.CertPool
	InsecureSkipVerify bool
	Timeout            time.Duration
	IdleConnTimeout    time.Duration
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *Config {
	return &Config{
		MinTLSVersion:   TLS12,
		MaxTLSVersion:   TLS13,
		CipherSuites:    RecommendedTLS12CipherSuites,
		Timeout:         5 * time.Second,
		IdleConnTimeout: 90 * time.Second,
	}
}

// Secure reports whether the configuration carries TLS material that makes
// HTTPS the expected scheme for bare addresses.
func (c *Config) Secure() bool {
	return len(c.Certificates) > 0 || c.RootCAs != nil
}

// Response is a raw HTTP response. Non-2xx responses are returned as values,
// not errors: SOAP faults and REST error bodies arrive with error status
// codes and still need parsing.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client issues HTTP(S) requests for the configuration and metadata
// protocols. Connections may be reused across calls.
type Client struct {
	client *http.Client
	config *Config
}

// NewClient creates a new HTTPS client
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	tlsConfig := &tls.Config{
		MinVersion:         config.MinTLSVersion,
		MaxVersion:         config.MaxTLSVersion,
		CipherSuites:       config.CipherSuites,
		Certificates:       config.Certificates,
		RootCAs:            config.RootCAs,
		InsecureSkipVerify: config.InsecureSkipVerify,
	}

	transport := &http.Transport{
		TLSClientConfig:     tlsConfig,
		IdleConnTimeout:     config.IdleConnTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		config: config,
	}
}

// Get issues a GET request and returns the raw response.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return c.do(req)
}

// Post issues a POST request with the given body and returns the raw
// response.
func (c *Client) Post(ctx context.Context, rawURL, contentType string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	req.Header.Set("User-Agent", "go-xrd/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Some configuration proxies gzip their responses regardless of the
	// request's Accept-Encoding.
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		body, err = gunzip(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode gzip response: %w", err)
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// gunzip decompresses a GZIP response body
func gunzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read compressed data: %w", err)
	}

	return buf.Bytes(), nil
}

// NormalizeURL adds an HTTP or HTTPS scheme to a bare address. Addresses that
// already carry a scheme are returned unchanged; bare addresses default to
// https when secure is set and http otherwise.
func NormalizeURL(addr string, secure bool) string {
	if u, err := url.Parse(addr); err == nil && u.Scheme != "" {
		return addr
	}
	if secure {
		return "https://" + addr
	}
	return "http://" + addr
}

// LoadKeyPair loads a client certificate and key from PEM files for mutual
// TLS authentication.
func LoadKeyPair(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load client key pair: %w", err)
	}
	return cert, nil
}

// LoadCARoots builds a certificate pool from a PEM bundle file.
func LoadCARoots(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in CA bundle %s", path)
	}
	return pool, nil
}
