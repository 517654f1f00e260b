package identifier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidIdentifier is returned when a wire identifier has the wrong
	// number of segments or an undecodable segment.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// ClientID identifies an X-Road member or subsystem.
// SubsystemCode is empty for member-level identifiers.
type ClientID struct {
	Instance      string
	MemberClass   string
	MemberCode    string
	SubsystemCode string
}

// IsSubsystem reports whether the identifier names a subsystem.
func (c ClientID) IsSubsystem() bool {
	return c.SubsystemCode != ""
}

// MemberOnly returns the member-level identifier with the subsystem stripped.
func (c ClientID) MemberOnly() ClientID {
	c.SubsystemCode = ""
	return c
}

// Segments returns the identifier's parts in wire order.
func (c ClientID) Segments() []string {
	if c.IsSubsystem() {
		return []string{c.Instance, c.MemberClass, c.MemberCode, c.SubsystemCode}
	}
	return []string{c.Instance, c.MemberClass, c.MemberCode}
}

// String returns the slash-separated, percent-encoded wire form.
func (c ClientID) String() string {
	return Encode(c.Segments())
}

// ServiceID identifies a service hosted by a member or subsystem.
// SubsystemCode and ServiceVersion may be empty.
type ServiceID struct {
	Instance       string
	MemberClass    string
	MemberCode     string
	SubsystemCode  string
	ServiceCode    string
	ServiceVersion string
}

// Owner returns the identifier of the member or subsystem providing the
// service.
func (s ServiceID) Owner() ClientID {
	return ClientID{
		Instance:      s.Instance,
		MemberClass:   s.MemberClass,
		MemberCode:    s.MemberCode,
		SubsystemCode: s.SubsystemCode,
	}
}

// Segments returns the identifier's parts in wire order. The subsystem
// segment is always present (possibly empty) so that the service code keeps
// a fixed position; the version segment is omitted when empty.
func (s ServiceID) Segments() []string {
	segs := []string{s.Instance, s.MemberClass, s.MemberCode, s.SubsystemCode, s.ServiceCode}
	if s.ServiceVersion != "" {
		segs = append(segs, s.ServiceVersion)
	}
	return segs
}

// String returns the slash-separated, percent-encoded wire form.
func (s ServiceID) String() string {
	return Encode(s.Segments())
}

// Encode joins identifier segments into the external wire form. Each segment
// is percent-encoded so that embedded slashes and non-ASCII characters
// round-trip losslessly through Split.
func Encode(segments []string) string {
	encoded := make([]string, len(segments))
	for i, seg := range segments {
		encoded[i] = EncodeSegment(seg)
	}
	return strings.Join(encoded, "/")
}

// EncodeSegment percent-encodes a single identifier segment. Embedded
// slashes become %2F so they never collide with the segment separator.
func EncodeSegment(segment string) string {
	return url.PathEscape(segment)
}

// Split decodes a wire identifier into its segments.
func Split(s string) ([]string, error) {
	raw := strings.Split(s, "/")
	segments := make([]string, len(raw))
	for i, seg := range raw {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q: %v", ErrInvalidIdentifier, seg, err)
		}
		segments[i] = decoded
	}
	return segments, nil
}

// ParseClientID parses a 3-segment member or 4-segment subsystem identifier.
func ParseClientID(s string) (ClientID, error) {
	segments, err := Split(s)
	if err != nil {
		return ClientID{}, err
	}
	switch len(segments) {
	case 3:
		return ClientID{Instance: segments[0], MemberClass: segments[1], MemberCode: segments[2]}, nil
	case 4:
		return ClientID{
			Instance:      segments[0],
			MemberClass:   segments[1],
			MemberCode:    segments[2],
			SubsystemCode: segments[3],
		}, nil
	default:
		return ClientID{}, fmt.Errorf("%w: expected 3 or 4 segments, got %d in %q", ErrInvalidIdentifier, len(segments), s)
	}
}

// ParseServiceID parses a 5-segment service or 6-segment versioned service
// identifier.
func ParseServiceID(s string) (ServiceID, error) {
	segments, err := Split(s)
	if err != nil {
		return ServiceID{}, err
	}
	switch len(segments) {
	case 5, 6:
		id := ServiceID{
			Instance:      segments[0],
			MemberClass:   segments[1],
			MemberCode:    segments[2],
			SubsystemCode: segments[3],
			ServiceCode:   segments[4],
		}
		if len(segments) == 6 {
			id.ServiceVersion = segments[5]
		}
		return id, nil
	default:
		return ServiceID{}, fmt.Errorf("%w: expected 5 or 6 segments, got %d in %q", ErrInvalidIdentifier, len(segments), s)
	}
}
