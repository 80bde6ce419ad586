// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"net"

	"github.com/user00265/dnswire/message"
)

// Result is the outcome of a typed query: the parsed response (nil
// if every server failed) plus every per-server failure encountered
// along the way. The typed projection methods below read out of
// Response.Answers, mirroring the original resolver's single/iter
// record accessors without needing macro-generated code.
type Result struct {
	Response *message.Response
	Errors   []NetError
}

func project[T any](res *Result, take func(message.RecordData) (T, bool)) (T, bool) {
	var zero T
	if res.Response == nil {
		return zero, false
	}
	for _, rr := range res.Response.Answers {
		if v, ok := take(rr.Data); ok {
			return v, true
		}
	}
	return zero, false
}

func projectAll[T any](res *Result, take func(message.RecordData) (T, bool)) []T {
	if res.Response == nil {
		return nil
	}
	var out []T
	for _, rr := range res.Response.Answers {
		if v, ok := take(rr.Data); ok {
			out = append(out, v)
		}
	}
	return out
}

func takeA(d message.RecordData) (net.IP, bool)       { return d.A, d.A != nil }
func takeAAAA(d message.RecordData) (net.IP, bool)     { return d.AAAA, d.AAAA != nil }
func takeCNAME(d message.RecordData) (string, bool)    { return d.CNAME, d.CNAME != "" }
func takeNS(d message.RecordData) (string, bool)       { return d.NS, d.NS != "" }
func takeSOA(d message.RecordData) (message.SOAData, bool) {
	if d.SOA == nil {
		return message.SOAData{}, false
	}
	return *d.SOA, true
}
func takeTXT(d message.RecordData) ([][]byte, bool) { return d.TXT, d.TXT != nil }

// A returns the first A record address in the response, if any.
func (r *Result) A() (net.IP, bool) { return project(r, takeA) }

// AIter returns every A record address in the response, in order.
func (r *Result) AIter() []net.IP { return projectAll(r, takeA) }

// AAAA returns the first AAAA record address in the response, if any.
func (r *Result) AAAA() (net.IP, bool) { return project(r, takeAAAA) }

// AAAAIter returns every AAAA record address in the response, in order.
func (r *Result) AAAAIter() []net.IP { return projectAll(r, takeAAAA) }

// CNAME returns the first CNAME target in the response, if any.
func (r *Result) CNAME() (string, bool) { return project(r, takeCNAME) }

// CNAMEIter returns every CNAME target in the response, in order.
func (r *Result) CNAMEIter() []string { return projectAll(r, takeCNAME) }

// NS returns the first NS target in the response, if any.
func (r *Result) NS() (string, bool) { return project(r, takeNS) }

// NSIter returns every NS target in the response, in order.
func (r *Result) NSIter() []string { return projectAll(r, takeNS) }

// SOA returns the first SOA record in the response, if any.
func (r *Result) SOA() (message.SOAData, bool) { return project(r, takeSOA) }

// TXT returns the first TXT record's strings in the response, if any.
func (r *Result) TXT() ([][]byte, bool) { return project(r, takeTXT) }

// TXTIter returns every TXT record's strings in the response, in order.
func (r *Result) TXTIter() [][][]byte { return projectAll(r, takeTXT) }

func (r *Resolver) query(ctx context.Context, name string, qtype uint16) *Result {
	resp, errs := r.Query(ctx, name, qtype)
	return &Result{Response: resp, Errors: errs}
}

// QueryA resolves name's A records.
func (r *Resolver) QueryA(ctx context.Context, name string) *Result {
	return r.query(ctx, name, message.TypeA)
}

// QueryAAAA resolves name's AAAA records.
func (r *Resolver) QueryAAAA(ctx context.Context, name string) *Result {
	return r.query(ctx, name, message.TypeAAAA)
}

// QueryCNAME resolves name's CNAME records.
func (r *Resolver) QueryCNAME(ctx context.Context, name string) *Result {
	return r.query(ctx, name, message.TypeCNAME)
}

// QueryNS resolves name's NS records.
func (r *Resolver) QueryNS(ctx context.Context, name string) *Result {
	return r.query(ctx, name, message.TypeNS)
}

// QuerySOA resolves name's SOA record.
func (r *Resolver) QuerySOA(ctx context.Context, name string) *Result {
	return r.query(ctx, name, message.TypeSOA)
}

// QueryTXT resolves name's TXT records.
func (r *Resolver) QueryTXT(ctx context.Context, name string) *Result {
	return r.query(ctx, name, message.TypeTXT)
}
