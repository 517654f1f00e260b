package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
	}{
		{"plain", []string{"DEV", "GOV", "1234", "demo"}},
		{"embedded slash", []string{"DEV", "GOV", "12/34", "de/mo"}},
		{"percent and space", []string{"DEV", "GOV", "100%", "a b"}},
		{"non-ascii", []string{"EE", "GOV", "põhi", "tühi/osa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := Encode(tt.segments)
			decoded, err := Split(wire)
			require.NoError(t, err)
			assert.Equal(t, tt.segments, decoded)
		})
	}
}

func TestEncodeEscapesSlash(t *testing.T) {
	wire := Encode([]string{"a/b", "c"})
	assert.Equal(t, "a%2Fb/c", wire)
}

func TestClientIDString(t *testing.T) {
	member := ClientID{Instance: "DEV", MemberClass: "GOV", MemberCode: "1234"}
	assert.Equal(t, "DEV/GOV/1234", member.String())
	assert.False(t, member.IsSubsystem())

	subsystem := ClientID{Instance: "DEV", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "demo"}
	assert.Equal(t, "DEV/GOV/1234/demo", subsystem.String())
	assert.True(t, subsystem.IsSubsystem())
	assert.Equal(t, member, subsystem.MemberOnly())
}

func TestParseClientID(t *testing.T) {
	id, err := ParseClientID("DEV/GOV/1234/demo")
	require.NoError(t, err)
	assert.Equal(t, ClientID{Instance: "DEV", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "demo"}, id)

	id, err = ParseClientID("DEV/GOV/12%2F34")
	require.NoError(t, err)
	assert.Equal(t, "12/34", id.MemberCode)

	_, err = ParseClientID("DEV/GOV")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = ParseClientID("DEV/GOV/1234/demo/extra")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestServiceID(t *testing.T) {
	svc := ServiceID{
		Instance:    "DEV",
		MemberClass: "GOV",
		MemberCode:  "1234",
		ServiceCode: "getData",
	}
	// Member-level service keeps an empty subsystem segment so the service
	// code stays in position five.
	assert.Equal(t, "DEV/GOV/1234//getData", svc.String())

	svc.SubsystemCode = "demo"
	svc.ServiceVersion = "v1"
	assert.Equal(t, "DEV/GOV/1234/demo/getData/v1", svc.String())

	parsed, err := ParseServiceID("DEV/GOV/1234/demo/getData/v1")
	if err != nil {
		t.Fatalf("ParseServiceID() error = %v", err)
	}
	assert.Equal(t, svc, parsed)

	owner := parsed.Owner()
	assert.Equal(t, "DEV/GOV/1234/demo", owner.String())
}
