// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package message

import (
	"strings"

	"golang.org/x/net/idna"

	"github.com/user00265/dnswire/wire"
)

const (
	maxLabelLen = 63
	maxNameLen  = 255
	pointerBits = 0xC000
	pointerMask = 0xC0
)

// punycodeProfile performs raw Punycode/ACE encode-decode with a
// minimum of IDNA validation: non-ASCII labels are encoded with the
// "xn--" prefix and decoded back, while plain ASCII labels pass
// through unchanged. This matches the wire-level behavior spec.md
// §4.2 describes; full IDNA2008 lookup validation is unnecessary
// here because the codec never rejects a name for policy reasons,
// only for structural ones.
var punycodeProfile = idna.Punycode

// CompressionMap records, for each message offset at which a name's
// first (non-pointer) occurrence was decoded, the borrowed wire bytes
// of that name (including its terminating zero label). It is
// append-only by construction: DecodeName only ever inserts an entry
// for an offset it is currently decoding forward from, so a pointer
// can never reference an offset that will be inserted later.
type CompressionMap map[uint16][]byte

// NewCompressionMap returns an empty map sized for a typical message.
func NewCompressionMap() CompressionMap {
	return make(CompressionMap, 8)
}

// Name is a borrowed view over the wire-format label sequence of a
// decoded domain name (length-prefixed labels terminated by a zero
// byte). It aliases the message buffer it was decoded from.
type Name struct {
	raw []byte // labels..., including the terminating 0x00
}

// DecodeName reads a domain name from c, resolving a leading
// compression pointer against m, or scanning labels directly and
// registering the name's own offset in m for later pointers to
// resolve against. An empty name (a bare zero length byte as the very
// first byte) is rejected per spec.md §4.2.
func DecodeName(c *wire.Cursor, m CompressionMap) (Name, error) {
	lead, err := c.PeekU8()
	if err != nil {
		return Name{}, err
	}

	if lead&pointerMask == pointerMask {
		ptr, err := c.ReadU16()
		if err != nil {
			return Name{}, err
		}
		raw, ok := m[ptr]
		if !ok {
			return Name{}, ErrBadPointer
		}
		return Name{raw: raw}, nil
	}

	if lead == 0 {
		return Name{}, ErrEmptyName
	}

	start := c.Pos()
	for {
		length, err := c.ReadU8()
		if err != nil {
			return Name{}, err
		}
		if length == 0 {
			break
		}
		if length&pointerMask != 0 {
			return Name{}, ErrBadPointer
		}
		if _, err := c.ReadSlice(int(length)); err != nil {
			return Name{}, ErrTruncatedSection
		}
	}

	raw := c.Bytes()[start:c.Pos()]
	n := Name{raw: raw}
	key := uint16(start) | pointerBits
	if _, exists := m[key]; !exists {
		m[key] = raw
	}
	return n, nil
}

// String decodes the borrowed label sequence into a dotted, Unicode
// domain name, applying Punycode decoding to any "xn--"-prefixed
// label. It fails if a non-"xn--" label contains non-ASCII bytes, or
// if Punycode decoding of an "xn--" label fails.
func (n Name) String() (string, error) {
	if len(n.raw) == 0 {
		return "", ErrEmptyName
	}

	var labels []string
	i := 0
	for i < len(n.raw) {
		length := int(n.raw[i])
		i++
		if length == 0 {
			break
		}
		if i+length > len(n.raw) {
			return "", ErrTruncatedSection
		}
		label := n.raw[i : i+length]
		i += length

		if !strings.HasPrefix(string(label), "xn--") {
			if !isASCII(label) {
				return "", ErrNonASCIILabel
			}
			labels = append(labels, string(label))
			continue
		}

		decoded, err := punycodeProfile.ToUnicode(string(label))
		if err != nil {
			return "", ErrPunycodeDecode
		}
		labels = append(labels, decoded)
	}

	return strings.Join(labels, "."), nil
}

// IsEmpty reports whether n carries no borrowed bytes (the zero
// value), as opposed to an explicitly rejected empty wire name.
func (n Name) IsEmpty() bool { return len(n.raw) == 0 }

// EncodeName writes the wire-format encoding of the dotted domain
// name s into out, returning the number of bytes written. Each label
// is written as-is if it is already ASCII; otherwise it is Punycode
// encoded and prefixed with "xn--". A label longer than 63 bytes
// after encoding, or a name longer than 255 bytes in total, is
// rejected.
func EncodeName(s string, out []byte) (int, error) {
	if s == "" || s == "." {
		if len(out) < 1 {
			return 0, ErrTruncatedSection
		}
		out[0] = 0
		return 1, nil
	}

	s = strings.TrimSuffix(s, ".")
	parts := strings.Split(s, ".")

	total := 0
	for _, part := range parts {
		encoded := part
		if !isASCIIString(part) {
			ace, err := punycodeProfile.ToASCII(part)
			if err != nil {
				return 0, ErrPunycodeDecode
			}
			encoded = ace
		}
		if len(encoded) > maxLabelLen {
			return 0, ErrLabelTooLong
		}
		if total+1+len(encoded) > len(out) {
			return 0, ErrTruncatedSection
		}
		out[total] = byte(len(encoded))
		copy(out[total+1:], encoded)
		total += 1 + len(encoded)
	}

	if total+1 > len(out) {
		return 0, ErrTruncatedSection
	}
	out[total] = 0
	total++

	if total > maxNameLen {
		return 0, ErrNameTooLong
	}

	return total, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

func isASCIIString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
