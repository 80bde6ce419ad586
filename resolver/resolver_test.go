// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/user00265/dnswire/message"
)

func u16be(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }
func u32be(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// buildAResponse hand-assembles a single-question, single-answer A
// response for id/name/ip, echoing the question the client asked.
func buildAResponse(id uint16, name string, ip net.IP) []byte {
	var buf []byte
	buf = append(buf, u16be(id)...)
	buf = append(buf, 0x81, 0x80) // QR RD / RA
	buf = append(buf, u16be(1)...)
	buf = append(buf, u16be(1)...)
	buf = append(buf, u16be(0)...)
	buf = append(buf, u16be(0)...)

	nameBuf := make([]byte, 256)
	n, err := message.EncodeName(name, nameBuf)
	if err != nil {
		panic(err)
	}
	buf = append(buf, nameBuf[:n]...)
	buf = append(buf, u16be(message.TypeA)...)
	buf = append(buf, u16be(message.ClassIN)...)

	buf = append(buf, nameBuf[:n]...)
	buf = append(buf, u16be(message.TypeA)...)
	buf = append(buf, u16be(message.ClassIN)...)
	buf = append(buf, u32be(300)...)
	buf = append(buf, u16be(4)...)
	buf = append(buf, ip.To4()...)
	return buf
}

// startFakeUDPServer answers every query for name with a fixed A
// record, echoing the client's transaction ID.
func startFakeUDPServer(t *testing.T, name string, ip net.IP) string {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if n < 2 {
				continue
			}
			id := uint16(buf[0])<<8 | uint16(buf[1])
			resp := buildAResponse(id, name, ip)
			_, _ = conn.WriteTo(resp, addr)
		}
	}()
	return conn.LocalAddr().String()
}

func TestResolverQueryASuccess(t *testing.T) {
	want := net.ParseIP("93.184.216.34").To4()
	addr := startFakeUDPServer(t, "example.com", want)

	r, err := New([]string{addr})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	r.SetTimeout(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := r.QueryA(ctx, "example.com")
	if len(res.Errors) != 0 {
		t.Fatalf("QueryA() errors = %v, want none", res.Errors)
	}
	got, ok := res.A()
	if !ok || !got.Equal(want) {
		t.Fatalf("QueryA() = %v, %v, want %v, true", got, ok, want)
	}
}

// startFakeUDPServerWrongID always replies with a fixed transaction ID
// that never matches what the client sent, to exercise the
// transaction-ID check on the UDP path.
func startFakeUDPServerWrongID(t *testing.T, name string, ip net.IP) string {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if n < 2 {
				continue
			}
			clientID := uint16(buf[0])<<8 | uint16(buf[1])
			resp := buildAResponse(clientID^0xFFFF, name, ip)
			_, _ = conn.WriteTo(resp, addr)
		}
	}()
	return conn.LocalAddr().String()
}

func TestResolverRejectsTransactionIDMismatch(t *testing.T) {
	want := net.ParseIP("198.51.100.99").To4()
	addr := startFakeUDPServerWrongID(t, "example.com", want)

	r, err := New([]string{addr})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	r.SetTimeout(1 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	resp, errs := r.Query(ctx, "example.com", message.TypeA)
	if resp != nil {
		t.Fatalf("Query() response = %+v, want nil (ID mismatch must not be accepted)", resp)
	}
	if len(errs) != 1 || errs[0].Kind != IDMismatch {
		t.Fatalf("Query() errs = %+v, want exactly one IDMismatch", errs)
	}
}

func TestResolverFallsBackAcrossServers(t *testing.T) {
	want := net.ParseIP("198.51.100.7").To4()
	goodAddr := startFakeUDPServer(t, "example.com", want)

	// A UDP address with nothing listening: the port is bound and then
	// released, so the UDP dial still succeeds but the exchange with it
	// fails, exercising the per-server fallback path.
	deadConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error: %v", err)
	}
	deadAddr := deadConn.LocalAddr().String()
	deadConn.Close()

	r, err := New([]string{deadAddr, goodAddr})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	r.SetTimeout(1 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	res := r.QueryA(ctx, "example.com")
	got, ok := res.A()
	if !ok || !got.Equal(want) {
		t.Fatalf("QueryA() = %v, %v, want %v, true (via fallback server)", got, ok, want)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one recorded failure for %s", res.Errors, deadAddr)
	}
}

func TestResolverAggregatesErrorsWhenAllServersFail(t *testing.T) {
	dead := make([]net.PacketConn, 2)
	servers := make([]string, 2)
	for i := range dead {
		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("ListenPacket() error: %v", err)
		}
		servers[i] = conn.LocalAddr().String()
		conn.Close()
		dead[i] = conn
	}

	r, err := New(servers)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	r.SetTimeout(300 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, errs := r.Query(ctx, "example.com", message.TypeA)
	if resp != nil {
		t.Fatalf("Query() response = %+v, want nil", resp)
	}
	if len(errs) != len(servers) {
		t.Fatalf("Query() errs = %d, want %d", len(errs), len(servers))
	}
}

func TestNewRejectsEmptyServerList(t *testing.T) {
	if _, err := New(nil); err != ErrNoServers {
		t.Fatalf("New() error = %v, want ErrNoServers", err)
	}
}

func TestSetServersHotReload(t *testing.T) {
	want := net.ParseIP("203.0.113.9").To4()
	addr := startFakeUDPServer(t, "example.com", want)

	r, err := New([]string{"127.0.0.1:1"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := r.SetServers([]string{addr}); err != nil {
		t.Fatalf("SetServers() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := r.QueryA(ctx, "example.com")
	got, ok := res.A()
	if !ok || !got.Equal(want) {
		t.Fatalf("QueryA() after SetServers = %v, %v, want %v, true", got, ok, want)
	}
}
