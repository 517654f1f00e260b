package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error kinds shared across go-xrd packages. Callers match them with
// errors.Is; the wrapped text always carries the original detail verbatim.
var (
	// ErrNetwork is returned when every configuration source failed at the
	// network level.
	ErrNetwork = errors.New("network error")
	// ErrTimeout is returned when a request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrConnection is returned when a metadata request failed at the
	// transport or TLS level.
	ErrConnection = errors.New("connection failed")
	// ErrFormat is returned for content that cannot be parsed.
	ErrFormat = errors.New("malformed content")
	// ErrIntegrity is returned when a configuration part's digest does not
	// match its declared value.
	ErrIntegrity = errors.New("configuration digest mismatch")
	// ErrTrust is returned when the bundle signature cannot be verified
	// against the anchor, or the bundle belongs to an unknown instance.
	ErrTrust = errors.New("trust verification failed")
	// ErrAddressResolution is returned when no security server address is
	// registered for an identifier.
	ErrAddressResolution = errors.New("no security server address registered")
	// ErrNotOpenAPIService is returned when the requested service has no
	// OpenAPI description.
	ErrNotOpenAPIService = errors.New("service does not have OpenAPI description")
	// ErrOpenAPIRead is returned when the producer security server failed to
	// read the service's OpenAPI description.
	ErrOpenAPIRead = errors.New("failed reading service OpenAPI description")
)

// ProtocolFault is a well-formed error returned by the remote gateway, either
// a SOAP fault or a REST metadata error body. FaultString preserves the
// server's text verbatim.
type ProtocolFault struct {
	FaultCode   string
	FaultString string
}

func (f *ProtocolFault) Error() string {
	if f.FaultCode != "" {
		return fmt.Sprintf("protocol fault %s: %s", f.FaultCode, f.FaultString)
	}
	return "protocol fault: " + f.FaultString
}

// IsTimeout reports whether err was caused by a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
