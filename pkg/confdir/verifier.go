package confdir

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash"
	"time"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
)

// ErrPartNotFound is returned by Bundle.Part for unknown content
// identifiers.
var ErrPartNotFound = errors.New("configuration part not found")

// Digest and signature algorithm identifiers accepted in bundle headers.
const (
	AlgoSHA256    = "http://www.w3.org/2001/04/xmlenc#sha256"
	AlgoSHA512    = "http://www.w3.org/2001/04/xmlenc#sha512"
	AlgoRSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgoRSASHA512 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha512"
)

var digestAlgorithms = map[string]crypto.Hash{
	AlgoSHA256:    crypto.SHA256,
	AlgoSHA512:    crypto.SHA512,
	AlgoRSASHA256: crypto.SHA256,
	AlgoRSASHA512: crypto.SHA512,
}

// VerifiedPart is a configuration part that passed digest and signature
// verification. Stale marks parts past their expiration; stale parts stay
// usable so cached bundles keep working offline.
type VerifiedPart struct {
	Part
	Stale bool
}

// Bundle is a fully verified configuration bundle. Values are immutable
// after construction and safe to share across goroutines.
type Bundle struct {
	Instance string
	Parts    []VerifiedPart
}

// Part returns the verified part with the given content identifier.
func (b *Bundle) Part(contentIdentifier string) (*VerifiedPart, error) {
	for i := range b.Parts {
		if b.Parts[i].ContentIdentifier == contentIdentifier {
			return &b.Parts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPartNotFound, contentIdentifier)
}

// Verifier validates configuration directories against an anchor's trust
// material.
type Verifier struct {
	anchor *Anchor
	now    func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithClock overrides the time source used for expiration checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a verifier for the given anchor.
func NewVerifier(anchor *Anchor, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		anchor: anchor,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks the directory's detached signature, part instances and part
// digests, and flags expired parts as stale. Any signature, instance or
// digest failure aborts verification: no partially verified bundle is ever
// returned.
func (v *Verifier) Verify(dir *Directory) (*Bundle, error) {
	if err := v.verifySignature(dir); err != nil {
		return nil, err
	}

	now := v.now()
	bundle := &Bundle{Instance: v.anchor.InstanceIdentifier}

	for _, part := range dir.Parts {
		if part.Instance != "" && part.Instance != v.anchor.InstanceIdentifier {
			return nil, fmt.Errorf("%w: part %s belongs to unknown instance %q",
				fault.ErrTrust, part.ContentIdentifier, part.Instance)
		}

		if err := verifyDigest(&part); err != nil {
			return nil, err
		}

		expire := part.ExpireDate
		if expire.IsZero() {
			expire = dir.ExpireDate
		}
		stale := !expire.IsZero() && now.After(expire)

		bundle.Parts = append(bundle.Parts, VerifiedPart{Part: part, Stale: stale})
	}

	return bundle, nil
}

func (v *Verifier) verifySignature(dir *Directory) error {
	hashAlgo, ok := digestAlgorithms[dir.SignatureAlgorithmID]
	if !ok {
		return fmt.Errorf("%w: unsupported signature algorithm %q", fault.ErrTrust, dir.SignatureAlgorithmID)
	}

	digest := hashBytes(hashAlgo, dir.SignedData)

	var lastErr error
	for _, cert := range v.anchor.VerificationCerts() {
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			lastErr = fmt.Errorf("verification certificate %s has non-RSA key", cert.Subject)
			continue
		}
		if err := rsa.VerifyPKCS1v15(pub, hashAlgo, digest, dir.Signature); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("anchor carries no verification certificates")
	}
	return fmt.Errorf("%w: bundle signature not verifiable by any anchor certificate: %v", fault.ErrTrust, lastErr)
}

func verifyDigest(part *Part) error {
	hashAlgo, ok := digestAlgorithms[part.HashAlgorithmID]
	if !ok {
		return fmt.Errorf("%w: part %s declares unsupported digest algorithm %q",
			fault.ErrIntegrity, part.ContentIdentifier, part.HashAlgorithmID)
	}

	computed := hashBytes(hashAlgo, part.Content)
	if subtle.ConstantTimeCompare(computed, part.Digest) != 1 {
		return fmt.Errorf("%w: part %s content does not match its declared digest",
			fault.ErrIntegrity, part.ContentIdentifier)
	}
	return nil
}

func hashBytes(algo crypto.Hash, data []byte) []byte {
	var h hash.Hash
	switch algo {
	case crypto.SHA256:
		h = sha256.New()
	default:
		h = sha512.New()
	}
	h.Write(data)
	return h.Sum(nil)
}
