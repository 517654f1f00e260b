package confdir

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
)

// AnchorSource is one trusted download location with the certificates that
// may sign configuration fetched from it.
type AnchorSource struct {
	DownloadURL       string
	VerificationCerts []*x509.Certificate
}

// Anchor is a parsed configuration anchor: the instance identifier, the
// ordered list of trusted sources and their verification certificates.
// Anchors are immutable after parsing.
type Anchor struct {
	InstanceIdentifier string
	GeneratedAt        time.Time
	Sources            []AnchorSource
}

// LoadAnchor reads and parses a configuration anchor file.
func LoadAnchor(path string) (*Anchor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading anchor file: %w", err)
	}
	return ParseAnchor(data)
}

// ParseAnchor parses a configuration anchor document.
func ParseAnchor(data []byte) (*Anchor, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: parsing anchor: %v", fault.ErrFormat, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "configurationAnchor" {
		return nil, fmt.Errorf("%w: not a configuration anchor document", fault.ErrFormat)
	}

	anchor := &Anchor{}

	instance := root.FindElement("./instanceIdentifier")
	if instance == nil || strings.TrimSpace(instance.Text()) == "" {
		return nil, fmt.Errorf("%w: anchor has no instanceIdentifier", fault.ErrFormat)
	}
	anchor.InstanceIdentifier = strings.TrimSpace(instance.Text())

	if generated := root.FindElement("./generatedAt"); generated != nil {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(generated.Text())); err == nil {
			anchor.GeneratedAt = t
		}
	}

	for _, src := range root.FindElements("./source") {
		urlElem := src.FindElement("./downloadURL")
		if urlElem == nil || strings.TrimSpace(urlElem.Text()) == "" {
			return nil, fmt.Errorf("%w: anchor source has no downloadURL", fault.ErrFormat)
		}
		source := AnchorSource{DownloadURL: strings.TrimSpace(urlElem.Text())}

		for _, certElem := range src.FindElements("./verificationCert") {
			der, err := base64.StdEncoding.DecodeString(collapseWhitespace(certElem.Text()))
			if err != nil {
				return nil, fmt.Errorf("%w: decoding verification certificate: %v", fault.ErrFormat, err)
			}
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				return nil, fmt.Errorf("%w: parsing verification certificate: %v", fault.ErrFormat, err)
			}
			source.VerificationCerts = append(source.VerificationCerts, cert)
		}
		anchor.Sources = append(anchor.Sources, source)
	}

	if len(anchor.Sources) == 0 {
		return nil, fmt.Errorf("%w: anchor lists no configuration sources", fault.ErrFormat)
	}

	return anchor, nil
}

// VerificationCerts returns every verification certificate the anchor
// carries, across all sources.
func (a *Anchor) VerificationCerts() []*x509.Certificate {
	var certs []*x509.Certificate
	for _, src := range a.Sources {
		certs = append(certs, src.VerificationCerts...)
	}
	return certs
}

// collapseWhitespace strips the line folding XML pretty-printers add inside
// base64 content.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
