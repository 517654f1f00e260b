package sharedparams

import (
	"fmt"

	"github.com/sirosfoundation/go-xrd/pkg/fault"
	"github.com/sirosfoundation/go-xrd/pkg/identifier"
)

// Members lists every registered member.
func (p *SharedParams) Members() []Member {
	return append([]Member(nil), p.members...)
}

// Subsystems lists every registered subsystem.
func (p *SharedParams) Subsystems() []Subsystem {
	return append([]Subsystem(nil), p.subsystems...)
}

// SubsystemWithMember is a subsystem joined with its owning member's name.
type SubsystemWithMember struct {
	ID         identifier.ClientID
	MemberName string
}

// SubsystemsWithMemberName lists subsystems joined with their member names.
func (p *SharedParams) SubsystemsWithMemberName() []SubsystemWithMember {
	result := make([]SubsystemWithMember, 0, len(p.subsystems))
	for _, subsystem := range p.subsystems {
		result = append(result, SubsystemWithMember{
			ID:         subsystem.ID,
			MemberName: p.memberName[subsystem.ID.MemberOnly().String()],
		})
	}
	return result
}

// RegisteredSubsystems lists subsystems attached to at least one security
// server.
func (p *SharedParams) RegisteredSubsystems() []Subsystem {
	var result []Subsystem
	for _, subsystem := range p.subsystems {
		if len(p.serversByClient[subsystem.ID.String()]) > 0 {
			result = append(result, subsystem)
		}
	}
	return result
}

// SubsystemServer pairs a subsystem with one security server hosting it.
// Server is nil when the subsystem is not registered on any server.
type SubsystemServer struct {
	Subsystem identifier.ClientID
	Server    *SecurityServer
}

// SubsystemsWithServer lists every subsystem joined with each server hosting
// it; unregistered subsystems appear once with a nil server.
func (p *SharedParams) SubsystemsWithServer() []SubsystemServer {
	var result []SubsystemServer
	for _, subsystem := range p.subsystems {
		indices := p.serversByClient[subsystem.ID.String()]
		if len(indices) == 0 {
			result = append(result, SubsystemServer{Subsystem: subsystem.ID})
			continue
		}
		for _, idx := range indices {
			server := p.servers[idx]
			result = append(result, SubsystemServer{Subsystem: subsystem.ID, Server: &server})
		}
	}
	return result
}

// SecurityServers lists every registered security server.
func (p *SharedParams) SecurityServers() []SecurityServer {
	return append([]SecurityServer(nil), p.servers...)
}

// GlobalGroups lists every global group.
func (p *SharedParams) GlobalGroups() []GlobalGroup {
	return append([]GlobalGroup(nil), p.groups...)
}

// CentralServices lists every central service.
func (p *SharedParams) CentralServices() []CentralService {
	return append([]CentralService(nil), p.centralServices...)
}

// ResolveAddress returns the address of a security server serving the given
// member or subsystem. Registrations as a client are preferred over server
// ownership, and servers in maintenance mode are used only when no other
// server is available.
func (p *SharedParams) ResolveAddress(id identifier.ClientID) (string, error) {
	indices := p.serversByClient[id.String()]
	if len(indices) == 0 {
		indices = p.serversByOwner[id.String()]
	}

	fallback := ""
	for _, idx := range indices {
		server := p.servers[idx]
		if server.Address == "" {
			continue
		}
		if !server.InMaintenanceMode {
			return server.Address, nil
		}
		if fallback == "" {
			fallback = server.Address
		}
	}
	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("%w: %s", fault.ErrAddressResolution, id)
}
