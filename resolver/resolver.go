// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

// Package resolver implements a client-side DNS resolver: it turns a
// domain name and query type into a typed answer by trying a list of
// configured servers in order, following the UDP-first-then-TCP
// fallback described in spec.md §4.6.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/user00265/dnswire/message"
)

const (
	maxUDPMessageSize = 4096
	maxTCPMessageSize = 65535
	defaultTimeout    = 5 * time.Second
)

// Resolver holds an ordered list of servers and queries them in turn,
// stopping at the first one that produces a response.
type Resolver struct {
	mu      sync.RWMutex
	servers []Endpoint
	timeout time.Duration
}

// New builds a Resolver from a list of server strings, each parsed by
// ParseEndpoint. The list must be non-empty.
func New(servers []string) (*Resolver, error) {
	r := &Resolver{timeout: defaultTimeout}
	if err := r.SetServers(servers); err != nil {
		return nil, err
	}
	return r, nil
}

// SetServers replaces the resolver's server list. It is safe to call
// concurrently with Query, and is how config.Manager applies a
// hot-reloaded server list (SPEC_FULL.md §10).
func (r *Resolver) SetServers(servers []string) error {
	if len(servers) == 0 {
		return ErrNoServers
	}
	eps := make([]Endpoint, 0, len(servers))
	for _, s := range servers {
		ep, err := ParseEndpoint(s)
		if err != nil {
			return err
		}
		eps = append(eps, ep)
	}
	r.mu.Lock()
	r.servers = eps
	r.mu.Unlock()
	return nil
}

// SetTimeout overrides the per-server connect/read deadline used when
// ctx carries no deadline of its own. The default is 5 seconds.
func (r *Resolver) SetTimeout(d time.Duration) {
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
}

func (r *Resolver) snapshot() ([]Endpoint, time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	servers := make([]Endpoint, len(r.servers))
	copy(servers, r.servers)
	return servers, r.timeout
}

// Query resolves name for the given question type against each
// configured server in order, returning the first successful
// response. Every failed attempt is recorded in the returned error
// slice; a nil response with a non-empty slice means every server
// failed, while a nil response with an empty slice means the server
// list itself was empty.
func (r *Resolver) Query(ctx context.Context, name string, qtype uint16) (*message.Response, []NetError) {
	servers, timeout := r.snapshot()
	req := message.NewRequest(name, qtype)

	var errs []NetError
	for _, ep := range servers {
		resp, netErr := r.queryOne(ctx, ep, req, timeout)
		if netErr != nil {
			errs = append(errs, *netErr)
			continue
		}
		return resp, errs
	}
	return nil, errs
}

func (r *Resolver) queryOne(ctx context.Context, ep Endpoint, req *message.Request, timeout time.Duration) (*message.Response, *NetError) {
	if ep.Network == "tcp" {
		return r.queryTCP(ctx, ep.Addr, req, timeout)
	}
	return r.queryUDP(ctx, ep.Addr, req, timeout)
}

// errTransactionIDMismatch reports that a response's transaction ID
// does not match the ID of the request it was read in reply to
// (spec.md §4.6 step 3), as opposed to a response that fails to parse
// at all. Rejecting it here stops a stale reply to an earlier query
// sharing the same socket, or an off-path spoofed UDP datagram, from
// being handed back as if it answered the current query.
func errTransactionIDMismatch(want, got uint16) error {
	return fmt.Errorf("resolver: response ID %d does not match request ID %d", got, want)
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(timeout)
}

// queryUDP sends req over UDP and falls back to TCP whenever the
// encoded query itself exceeds 512 bytes or the server sets the TC
// bit on its reply, matching property P5/P6's client-side contract.
func (r *Resolver) queryUDP(ctx context.Context, addr string, req *message.Request, timeout time.Duration) (*message.Response, *NetError) {
	buf := make([]byte, maxUDPMessageSize)
	n, err := req.EncodeUDP(buf)
	if err != nil {
		return nil, &NetError{Server: addr, Kind: EncodeFailed, Err: err}
	}
	if n > 512 {
		return r.queryTCP(ctx, addr, req, timeout)
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, &NetError{Server: addr, Kind: ConnectUDPFailed, Err: err}
	}
	defer conn.Close()
	conn.SetDeadline(deadline(ctx, timeout))

	if _, err := conn.Write(buf[:n]); err != nil {
		return nil, &NetError{Server: addr, Kind: SendUDPFailed, Err: err}
	}

	respBuf := make([]byte, maxUDPMessageSize)
	rn, err := conn.Read(respBuf)
	if err != nil {
		return nil, &NetError{Server: addr, Kind: RecvUDPFailed, Err: err}
	}

	resp, err := message.ParseResponse(respBuf[:rn])
	if err != nil {
		return nil, &NetError{Server: addr, Kind: DecodeFailed, Err: err}
	}
	if resp.Header.ID != req.ID {
		return nil, &NetError{Server: addr, Kind: IDMismatch, Err: errTransactionIDMismatch(req.ID, resp.Header.ID)}
	}
	if resp.Header.TC {
		return r.queryTCP(ctx, addr, req, timeout)
	}
	return resp, nil
}

func (r *Resolver) queryTCP(ctx context.Context, addr string, req *message.Request, timeout time.Duration) (*message.Response, *NetError) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &NetError{Server: addr, Kind: ConnectTCPFailed, Err: err}
	}
	defer conn.Close()
	conn.SetDeadline(deadline(ctx, timeout))

	buf := make([]byte, 2+maxTCPMessageSize)
	framed, err := req.EncodeTCP(buf)
	if err != nil {
		return nil, &NetError{Server: addr, Kind: EncodeFailed, Err: err}
	}
	if _, err := conn.Write(framed); err != nil {
		return nil, &NetError{Server: addr, Kind: WriteTCPFailed, Err: err}
	}

	var lenPrefix [2]byte
	if _, err := io.ReadFull(conn, lenPrefix[:]); err != nil {
		return nil, &NetError{Server: addr, Kind: RecvTCPFailed, Err: err}
	}
	respLen := int(lenPrefix[0])<<8 | int(lenPrefix[1])

	respBuf := make([]byte, respLen)
	if _, err := io.ReadFull(conn, respBuf); err != nil {
		return nil, &NetError{Server: addr, Kind: RecvTCPFailed, Err: err}
	}

	resp, err := message.ParseResponse(respBuf)
	if err != nil {
		return nil, &NetError{Server: addr, Kind: DecodeFailed, Err: err}
	}
	if resp.Header.ID != req.ID {
		return nil, &NetError{Server: addr, Kind: IDMismatch, Err: errTransactionIDMismatch(req.ID, resp.Header.ID)}
	}
	return resp, nil
}
