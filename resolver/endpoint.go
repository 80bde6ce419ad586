// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package resolver

import (
	"fmt"
	"net"
	"strings"
)

// Endpoint is a parsed server target: a transport ("udp" or "tcp")
// and a host:port address.
type Endpoint struct {
	Network string
	Addr    string
}

// ParseEndpoint parses a server string of the form
// "[tcp://|udp://]host[:port]". A missing scheme defaults to udp; a
// missing port defaults to 53.
//
// The original port-detection scan looked for the byte 0x4C ('L')
// instead of ':' and so never found a colon in a real address,
// silently appending ":53" even onto an address that already carried
// an explicit port. ParseEndpoint uses net.SplitHostPort, which
// reports a distinct "missing port" error, to tell the two cases
// apart correctly.
func ParseEndpoint(s string) (Endpoint, error) {
	ep := Endpoint{Network: "udp"}
	rest := s

	if r, ok := strings.CutPrefix(s, "tcp://"); ok {
		ep.Network = "tcp"
		rest = r
	} else if r, ok := strings.CutPrefix(s, "udp://"); ok {
		rest = r
	}

	if rest == "" {
		return Endpoint{}, fmt.Errorf("resolver: empty server address %q", s)
	}

	host, port, err := net.SplitHostPort(rest)
	if err != nil {
		if addrErr, ok := err.(*net.AddrError); ok && strings.Contains(addrErr.Err, "missing port") {
			host, port = strings.TrimSuffix(strings.TrimPrefix(rest, "["), "]"), "53"
		} else {
			return Endpoint{}, fmt.Errorf("resolver: invalid server address %q: %w", s, err)
		}
	}

	ep.Addr = net.JoinHostPort(host, port)
	return ep, nil
}
