// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package message

import (
	"math/rand"
)

// RequestQuestion is a single question to encode into a request.
type RequestQuestion struct {
	Name  string
	Type  uint16
	Class uint16
}

// Request is an owned, not-yet-encoded DNS query message: a header
// with QR=0, Opcode=0, RD=1 and a transaction ID drawn from a
// cryptographically insignificant PRNG (transaction IDs only need to
// disambiguate concurrent in-flight queries, not resist prediction),
// plus one or more questions.
type Request struct {
	ID        uint16
	Questions []RequestQuestion
}

// NewRequest builds a single-question request for name/qtype with
// class IN.
func NewRequest(name string, qtype uint16) *Request {
	return &Request{
		ID: uint16(rand.Intn(1 << 16)),
		Questions: []RequestQuestion{
			{Name: name, Type: qtype, Class: ClassIN},
		},
	}
}

func (r *Request) encodeHeader(buf []byte) {
	buf[0] = byte(r.ID >> 8)
	buf[1] = byte(r.ID)
	buf[2] = 0x01 // RD=1, QR=0, Opcode=0, AA=0, TC=0
	buf[3] = 0x00
	buf[4] = byte(len(r.Questions) >> 8)
	buf[5] = byte(len(r.Questions))
	buf[6], buf[7] = 0, 0
	buf[8], buf[9] = 0, 0
	buf[10], buf[11] = 0, 0
}

// EncodeUDP writes the UDP wire form of r into buf and returns the
// number of bytes written. If the encoded length exceeds 512 bytes,
// the TC bit (spec.md §4.5, property P5) is set in the written
// header, signaling the caller should retry over TCP; it does not by
// itself truncate the message.
func (r *Request) EncodeUDP(buf []byte) (int, error) {
	if len(buf) < headerSize {
		return 0, ErrTooShort
	}
	r.encodeHeader(buf)

	pos := headerSize
	for _, q := range r.Questions {
		n, err := EncodeName(q.Name, buf[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
		if pos+4 > len(buf) {
			return 0, ErrTruncatedSection
		}
		buf[pos] = byte(q.Type >> 8)
		buf[pos+1] = byte(q.Type)
		buf[pos+2] = byte(q.Class >> 8)
		buf[pos+3] = byte(q.Class)
		pos += 4
	}

	if pos > 512 {
		buf[2] |= 0x02 // TC bit
	}

	return pos, nil
}

// EncodeTCP writes the length-prefixed TCP wire form of r into buf
// and returns the written prefix of buf: a 2-byte big-endian length
// field followed by the same bytes EncodeUDP would have produced
// (property P6). The TC bit is never set on the TCP form since TCP
// framing has no 512-byte ceiling.
func (r *Request) EncodeTCP(buf []byte) ([]byte, error) {
	if len(buf) < 2 {
		return nil, ErrTooShort
	}
	n, err := r.EncodeUDP(buf[2:])
	if err != nil {
		return nil, err
	}
	buf[2] &^= 0x02 // clear any TC bit set by the >512 UDP check
	buf[0] = byte(n >> 8)
	buf[1] = byte(n)
	return buf[:2+n], nil
}
