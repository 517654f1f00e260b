// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package goxrd implements a client for X-Road style federated data-exchange
networks: retrieval and cryptographic verification of the signed global
configuration, and metadata queries against member Security Servers.

# Overview

go-xrd covers the client side of two protocols:

  - Global configuration download: a signed multi-part configuration bundle
    is fetched from one of the trusted sources listed in a configuration
    anchor, split into parts, and verified (per-part digests, detached
    bundle signature, expiry flagging) before any of its content is exposed.
  - Service metadata: listMethods, allowedMethods, getWsdl and getOpenApi
    requests against a Security Server, over SOAP or the REST metadata
    interface.

# Package Structure

The library is organized into the following packages:

	github.com/sirosfoundation/go-xrd/pkg/identifier   - X-Road identifiers and wire encoding
	github.com/sirosfoundation/go-xrd/pkg/fault        - error kinds shared across packages
	github.com/sirosfoundation/go-xrd/pkg/transport    - HTTPS transport with mutual TLS
	github.com/sirosfoundation/go-xrd/pkg/confdir      - configuration anchor, bundle fetch and verification
	github.com/sirosfoundation/go-xrd/pkg/sharedparams - parsed registry of members, subsystems and servers
	github.com/sirosfoundation/go-xrd/pkg/metadata     - SOAP/REST metadata client
	github.com/sirosfoundation/go-xrd/pkg/openapi      - OpenAPI endpoint listing

# Quick Start

To list the services of a subsystem:

	import (
	    "github.com/sirosfoundation/go-xrd/pkg/confdir"
	    "github.com/sirosfoundation/go-xrd/pkg/identifier"
	    "github.com/sirosfoundation/go-xrd/pkg/metadata"
	    "github.com/sirosfoundation/go-xrd/pkg/sharedparams"
	)

	anchor, _ := confdir.LoadAnchor("configuration-anchor.xml")
	fetcher := confdir.NewFetcher(nil)
	dir, _ := fetcher.FetchDirectory(ctx, anchor)

	verifier := confdir.NewVerifier(anchor)
	verified, _ := verifier.Verify(dir)

	part, _ := verified.Part(confdir.ContentIDSharedParameters)
	params, _ := sharedparams.Parse(part.Content)

	producer := identifier.ClientID{Instance: "DEV", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "demo"}
	addr, _ := params.ResolveAddress(producer)

	client := metadata.NewClient()
	services, _ := client.ListMethods(ctx, addr, metadata.Request{
	    Client:   identifier.ClientID{Instance: "DEV", MemberClass: "COM", MemberCode: "5678"},
	    Producer: producer,
	})

All operations are synchronous and issue exactly one request per call;
timeouts are caller-supplied and parallelism is driven by the caller.

# License

BSD-2-Clause License
*/
package goxrd
