package confdir

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
)

// Well-known content identifiers of configuration parts.
const (
	ContentIDSharedParameters  = "SHARED-PARAMETERS"
	ContentIDPrivateParameters = "PRIVATE-PARAMETERS"
)

// Part is one entry of the configuration directory: its listing metadata and
// the raw bytes the digest was computed over. Parts are created per fetch and
// superseded wholesale on refresh.
type Part struct {
	ContentIdentifier string
	Instance          string
	Location          string
	ExpireDate        time.Time // zero when the part inherits the directory expiry
	HashAlgorithmID   string
	Digest            []byte
	Content           []byte
}

// Directory is a parsed, not yet verified configuration bundle.
type Directory struct {
	Version    string
	ExpireDate time.Time
	Parts      []Part

	// SignedData holds the raw bytes of the directory part, exactly as the
	// detached signature was computed over them.
	SignedData           []byte
	SignatureAlgorithmID string
	Signature            []byte
}

// ParseDirectory splits a configuration bundle into its parts. contentType is
// the bundle's Content-Type header, carrying the outer boundary. The result
// is unverified; pass it to a Verifier before using any part content.
func ParseDirectory(data []byte, contentType string) (*Directory, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing bundle content type: %v", fault.ErrFormat, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("%w: bundle is not multipart: %s", fault.ErrFormat, mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: bundle content type has no boundary", fault.ErrFormat)
	}

	reader := multipart.NewReader(bytes.NewReader(data), boundary)

	// First outer part: the directory itself, a nested multipart/mixed
	// document whose raw bytes are what the signature covers.
	dirPart, err := reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("%w: bundle has no directory part: %v", fault.ErrFormat, err)
	}
	signedData, err := io.ReadAll(dirPart)
	if err != nil {
		return nil, fmt.Errorf("%w: reading directory part: %v", fault.ErrFormat, err)
	}

	dir := &Directory{SignedData: signedData}
	if err := parseDirectoryContent(dir, signedData, dirPart.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	// Second outer part: the detached signature.
	sigPart, err := reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("%w: bundle has no signature part: %v", fault.ErrFormat, err)
	}
	dir.SignatureAlgorithmID = sigPart.Header.Get("Signature-Algorithm-Id")
	if dir.SignatureAlgorithmID == "" {
		return nil, fmt.Errorf("%w: signature part has no Signature-Algorithm-Id header", fault.ErrFormat)
	}
	sigBody, err := io.ReadAll(sigPart)
	if err != nil {
		return nil, fmt.Errorf("%w: reading signature part: %v", fault.ErrFormat, err)
	}
	dir.Signature, err = base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(sigBody)), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding signature: %v", fault.ErrFormat, err)
	}

	return dir, nil
}

// parseDirectoryContent parses the nested multipart/mixed directory: a
// header-only metadata part followed by one part per configuration file.
func parseDirectoryContent(dir *Directory, data []byte, contentType string) error {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: parsing directory content type: %v", fault.ErrFormat, err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return fmt.Errorf("%w: directory content type has no boundary", fault.ErrFormat)
	}

	reader := multipart.NewReader(bytes.NewReader(data), boundary)
	first := true
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: reading directory part: %v", fault.ErrFormat, err)
		}
		body, err := io.ReadAll(part)
		if err != nil {
			return fmt.Errorf("%w: reading directory part body: %v", fault.ErrFormat, err)
		}

		if first {
			first = false
			if part.Header.Get("Content-Identifier") == "" {
				// Header-only metadata part.
				dir.Version = part.Header.Get("Version")
				if expire := part.Header.Get("Expire-Date"); expire != "" {
					dir.ExpireDate, err = time.Parse(time.RFC3339, expire)
					if err != nil {
						return fmt.Errorf("%w: parsing directory Expire-Date: %v", fault.ErrFormat, err)
					}
				}
				continue
			}
			// No metadata part; fall through and treat it as content.
		}

		entry, err := parseContentPart(part.Header, body)
		if err != nil {
			return err
		}
		dir.Parts = append(dir.Parts, *entry)
	}

	if len(dir.Parts) == 0 {
		return fmt.Errorf("%w: directory lists no configuration parts", fault.ErrFormat)
	}
	return nil
}

// parseContentPart parses one listing row and its associated content bytes.
func parseContentPart(header textproto.MIMEHeader, body []byte) (*Part, error) {
	identifier, instance, err := parseContentIdentifier(header.Get("Content-Identifier"))
	if err != nil {
		return nil, err
	}

	entry := &Part{
		ContentIdentifier: identifier,
		Instance:          instance,
		Location:          header.Get("Content-Location"),
		HashAlgorithmID:   header.Get("Hash-Algorithm-Id"),
		Content:           body,
	}

	if entry.Location == "" {
		return nil, fmt.Errorf("%w: part %s has no Content-Location header", fault.ErrFormat, identifier)
	}
	if entry.HashAlgorithmID == "" {
		return nil, fmt.Errorf("%w: part %s has no Hash-Algorithm-Id header", fault.ErrFormat, identifier)
	}

	digest := header.Get("Digest")
	if digest == "" {
		return nil, fmt.Errorf("%w: part %s has no Digest header", fault.ErrFormat, identifier)
	}
	entry.Digest, err = base64.StdEncoding.DecodeString(digest)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding digest of part %s: %v", fault.ErrFormat, identifier, err)
	}

	if expire := header.Get("Expire-Date"); expire != "" {
		entry.ExpireDate, err = time.Parse(time.RFC3339, expire)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing Expire-Date of part %s: %v", fault.ErrFormat, identifier, err)
		}
	}

	return entry, nil
}

// parseContentIdentifier splits a Content-Identifier header of the form
// "SHARED-PARAMETERS; instance='DEV'" into identifier and instance.
func parseContentIdentifier(value string) (identifier, instance string, err error) {
	if value == "" {
		return "", "", fmt.Errorf("%w: part has no Content-Identifier header", fault.ErrFormat)
	}
	fields := strings.Split(value, ";")
	identifier = strings.TrimSpace(fields[0])
	for _, field := range fields[1:] {
		field = strings.TrimSpace(field)
		if rest, ok := strings.CutPrefix(field, "instance="); ok {
			instance = strings.Trim(rest, "'\"")
		}
	}
	return identifier, instance, nil
}
