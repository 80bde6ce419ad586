// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package message

import (
	"testing"

	"github.com/user00265/dnswire/wire"
)

// Property P2: ASCII domain round-trip.
func TestEncodeDecodeNameASCIIRoundTrip(t *testing.T) {
	cases := []string{
		"www.google.com",
		"dns.weixin.qq.com.cn",
		"a.b.c.example.org",
		"single-label",
	}

	for _, domain := range cases {
		buf := make([]byte, 256)
		n, err := EncodeName(domain, buf)
		if err != nil {
			t.Fatalf("EncodeName(%q) error: %v", domain, err)
		}

		c := wire.New(buf[:n])
		m := NewCompressionMap()
		name, err := DecodeName(c, m)
		if err != nil {
			t.Fatalf("DecodeName(%q) error: %v", domain, err)
		}
		got, err := name.String()
		if err != nil {
			t.Fatalf("Name.String(%q) error: %v", domain, err)
		}
		if got != domain {
			t.Fatalf("round-trip = %q, want %q", got, domain)
		}
	}
}

// Scenario 3: IDN encode of "小米.中国" to Punycode labels.
func TestEncodeNameIDN(t *testing.T) {
	buf := make([]byte, 64)
	n, err := EncodeName("小米.中国", buf)
	if err != nil {
		t.Fatalf("EncodeName() error: %v", err)
	}

	want := []byte{
		0x0B, 'x', 'n', '-', '-', 'y', 'e', 't', 's', '7', '6', 'e',
		0x0A, 'x', 'n', '-', '-', 'f', 'i', 'q', 's', '8', 's',
		0x00,
	}
	if n != len(want) {
		t.Fatalf("encoded length = %d, want %d", n, len(want))
	}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, buf[i], want[i])
		}
	}
}

// P2 (IDN branch): decode(encode(x)) equals x after NFC normalization.
func TestDecodeNameIDNRoundTrip(t *testing.T) {
	domain := "小米.中国"
	buf := make([]byte, 64)
	n, err := EncodeName(domain, buf)
	if err != nil {
		t.Fatalf("EncodeName() error: %v", err)
	}

	c := wire.New(buf[:n])
	m := NewCompressionMap()
	name, err := DecodeName(c, m)
	if err != nil {
		t.Fatalf("DecodeName() error: %v", err)
	}
	got, err := name.String()
	if err != nil {
		t.Fatalf("Name.String() error: %v", err)
	}
	if got != domain {
		t.Fatalf("round-trip = %q, want %q", got, domain)
	}
}

func TestDecodeNameRejectsEmptyName(t *testing.T) {
	c := wire.New([]byte{0x00})
	m := NewCompressionMap()
	if _, err := DecodeName(c, m); err != ErrEmptyName {
		t.Fatalf("DecodeName() error = %v, want ErrEmptyName", err)
	}
}

func TestDecodeNameRejectsNonASCIIWithoutXN(t *testing.T) {
	// A label containing a raw non-ASCII byte without the xn-- prefix.
	raw := []byte{3, 0xC3, 0xA9, 'x', 0}
	c := wire.New(raw)
	m := NewCompressionMap()
	name, err := DecodeName(c, m)
	if err != nil {
		t.Fatalf("DecodeName() error: %v", err)
	}
	if _, err := name.String(); err != ErrNonASCIILabel {
		t.Fatalf("String() error = %v, want ErrNonASCIILabel", err)
	}
}

// Property P4: bounds safety, every truncated prefix fails cleanly.
func TestDecodeNameNeverPanicsOnTruncation(t *testing.T) {
	buf := make([]byte, 64)
	n, err := EncodeName("dns.weixin.qq.com.cn", buf)
	if err != nil {
		t.Fatalf("EncodeName() error: %v", err)
	}

	for k := 0; k < n; k++ {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("prefix length %d panicked: %v", k, r)
				}
			}()
			c := wire.New(buf[:k])
			m := NewCompressionMap()
			_, _ = DecodeName(c, m)
		}()
	}
}

func TestCompressionPointerResolution(t *testing.T) {
	// Build: [name at offset 0] [pointer to offset 0]
	buf := make([]byte, 64)
	n, err := EncodeName("dns.weixin.qq.com.cn", buf)
	if err != nil {
		t.Fatalf("EncodeName() error: %v", err)
	}
	buf[n] = 0xC0
	buf[n+1] = 0x00

	c := wire.New(buf[:n+2])
	m := NewCompressionMap()

	first, err := DecodeName(c, m)
	if err != nil {
		t.Fatalf("DecodeName() first error: %v", err)
	}
	firstStr, _ := first.String()

	c.SetPos(n)
	second, err := DecodeName(c, m)
	if err != nil {
		t.Fatalf("DecodeName() second (pointer) error: %v", err)
	}
	secondStr, _ := second.String()

	if firstStr != secondStr {
		t.Fatalf("pointer resolved to %q, want %q", secondStr, firstStr)
	}
}

func TestDecodeNameForwardPointerFails(t *testing.T) {
	// A pointer to an offset that has not been scanned yet must fail.
	buf := []byte{0xC0, 0x02, 0x00}
	c := wire.New(buf)
	m := NewCompressionMap()
	if _, err := DecodeName(c, m); err != ErrBadPointer {
		t.Fatalf("DecodeName() error = %v, want ErrBadPointer", err)
	}
}

func TestEncodeNameRejectsOverlongLabel(t *testing.T) {
	label := make([]byte, 64)
	for i := range label {
		label[i] = 'a'
	}
	buf := make([]byte, 256)
	_, err := EncodeName(string(label)+".com", buf)
	if err != ErrLabelTooLong {
		t.Fatalf("EncodeName() error = %v, want ErrLabelTooLong", err)
	}
}
