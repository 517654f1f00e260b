// Package config handles configuration loading for go-xrd tools.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax). This allows deployment-specific
// values like anchor paths and TLS key locations to be injected at runtime.
//
// # Configuration Sections
//
//   - anchor: configuration anchor location or explicit source URLs
//   - client: the requesting member or subsystem identifier
//   - tls: mutual TLS material for security server connections
//   - timeout: per-request timeout
//   - verbosity: log level (debug, info, warn, error)
//
// # Example Configuration
//
//	anchor:
//	  path: /etc/xroad/configuration-anchor.xml
//
//	client: DEV/COM/5678/client
//
//	tls:
//	  certFile: ${XRD_CERT_FILE}
//	  keyFile: ${XRD_KEY_FILE}
//	  caFile: /etc/xroad/ca.pem
//
//	timeout: 5s
//	verbosity: info
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-xrd/pkg/identifier"
	"github.com/sirosfoundation/go-xrd/pkg/transport"
)

// Config is the root configuration structure
type Config struct {
	Anchor    AnchorConfig  `yaml:"anchor"`
	Client    string        `yaml:"client"`
	TLS       TLSConfig     `yaml:"tls"`
	Timeout   time.Duration `yaml:"timeout"`
	Verbosity string        `yaml:"verbosity"`
}

// AnchorConfig locates the trust anchor. Either a path to an anchor XML file
// or an explicit list of download URLs; the anchor file wins when both are
// set.
type AnchorConfig struct {
	Path    string   `yaml:"path"`
	Sources []string `yaml:"sources"`
}

// TLSConfig holds mutual TLS material for security server connections
type TLSConfig struct {
	CertFile           string `yaml:"certFile"`
	KeyFile            string `yaml:"keyFile"`
	CAFile             string `yaml:"caFile"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults
	cfg.applyDefaults()

	// Validate
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Verbosity == "" {
		c.Verbosity = "info"
	}
}

func (c *Config) validate() error {
	if c.Anchor.Path == "" && len(c.Anchor.Sources) == 0 {
		return fmt.Errorf("anchor.path or anchor.sources is required")
	}

	if c.Client != "" {
		if _, err := identifier.ParseClientID(c.Client); err != nil {
			return fmt.Errorf("client must be a 3 or 4 segment identifier: %w", err)
		}
	}

	switch c.Verbosity {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("verbosity must be 'debug', 'info', 'warn', or 'error', got '%s'", c.Verbosity)
	}

	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("tls.certFile and tls.keyFile must be set together")
	}

	return nil
}

// ClientID returns the parsed client identifier. Load already validated the
// wire form.
func (c *Config) ClientID() (identifier.ClientID, error) {
	return identifier.ParseClientID(c.Client)
}

// Transport builds the HTTPS transport configuration, loading any TLS
// material referenced by the file.
func (c *Config) Transport() (*transport.Config, error) {
	tc := transport.DefaultConfig()
	tc.Timeout = c.Timeout
	tc.InsecureSkipVerify = c.TLS.InsecureSkipVerify

	if c.TLS.CertFile != "" {
		cert, err := transport.LoadKeyPair(c.TLS.CertFile, c.TLS.KeyFile)
		if err != nil {
			return nil, err
		}
		tc.Certificates = append(tc.Certificates, cert)
	}
	if c.TLS.CAFile != "" {
		roots, err := transport.LoadCARoots(c.TLS.CAFile)
		if err != nil {
			return nil, err
		}
		tc.RootCAs = roots
	}
	return tc, nil
}

// Logger builds a logger honoring the configured verbosity.
func (c *Config) Logger() (*zap.Logger, error) {
	level := zap.InfoLevel
	switch c.Verbosity {
	case "debug":
		level = zap.DebugLevel
	case "warn":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
