package sharedparams

import (
	"context"
	"errors"
	"fmt"

	"github.com/miekg/dns"
)

// Resolver resolves security-server addresses to IP addresses.
type Resolver struct {
	server    string
	dnsClient *dns.Client
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDNSServer sets the DNS server to query ("ip:port"). The default is the
// first server from /etc/resolv.conf.
func WithDNSServer(addr string) ResolverOption {
	return func(r *Resolver) {
		r.server = addr
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{dnsClient: new(dns.Client)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddressIPs resolves one DNS name to its IPv4 and IPv6 addresses.
// Names that do not exist resolve to an empty list, not an error.
func (r *Resolver) AddressIPs(ctx context.Context, address string) ([]string, error) {
	server, err := r.dnsServer()
	if err != nil {
		return nil, err
	}

	var ips []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(address), qtype)
		msg.RecursionDesired = true

		resp, _, err := r.dnsClient.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed for %s: %w", address, err)
		}
		if resp.Rcode == dns.RcodeNameError {
			// Unresolvable names are skipped silently.
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("DNS lookup failed for %s: rcode=%d", address, resp.Rcode)
		}

		for _, rr := range resp.Answer {
			switch record := rr.(type) {
			case *dns.A:
				ips = append(ips, record.A.String())
			case *dns.AAAA:
				ips = append(ips, record.AAAA.String())
			}
		}
	}
	return ips, nil
}

// ServerIPs resolves the address of every registered security server,
// silently skipping names that do not resolve.
func (r *Resolver) ServerIPs(ctx context.Context, params *SharedParams) ([]string, error) {
	var ips []string
	for _, server := range params.SecurityServers() {
		if server.Address == "" {
			continue
		}
		resolved, err := r.AddressIPs(ctx, server.Address)
		if err != nil {
			return nil, err
		}
		ips = append(ips, resolved...)
	}
	return ips, nil
}

func (r *Resolver) dnsServer() (string, error) {
	if r.server != "" {
		return r.server, nil
	}
	config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", fmt.Errorf("failed to read DNS config: %w", err)
	}
	if len(config.Servers) == 0 {
		return "", errors.New("no DNS servers configured")
	}
	return config.Servers[0] + ":" + config.Port, nil
}
