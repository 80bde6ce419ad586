// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

// Package wire implements a bounds-checked, borrowed cursor over a DNS
// message buffer. It is the single point where out-of-bounds reads are
// turned into errors instead of panics; every higher layer of the codec
// builds on top of it.
package wire

import "errors"

// ErrShortBuffer is returned by any read that would advance the cursor
// past the end of the underlying slice.
var ErrShortBuffer = errors.New("wire: read past end of buffer")

// Cursor is a read-only, position-tracked view over a byte slice. It
// never copies the underlying bytes; slices returned by ReadSlice and
// similar methods borrow directly from the buffer passed to New and
// must not outlive it.
type Cursor struct {
	buf []byte
	pos int
}

// New wraps buf in a Cursor positioned at offset 0.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// SetPos repositions the cursor. It does not validate pos against Len;
// the next read will fail with ErrShortBuffer if pos is out of range.
func (c *Cursor) SetPos(pos int) { c.pos = pos }

// Bytes returns the full underlying buffer, unaffected by Pos.
func (c *Cursor) Bytes() []byte { return c.buf }

// Remaining reports how many bytes are left to read.
func (c *Cursor) Remaining() int {
	if c.pos >= len(c.buf) {
		return 0
	}
	return len(c.buf) - c.pos
}

// Skip advances the cursor by n bytes without reading them.
func (c *Cursor) Skip(n int) { c.pos += n }

// PeekU8 returns the byte at the current position without advancing.
func (c *Cursor) PeekU8() (uint8, error) {
	if c.pos < 0 || c.pos+1 > len(c.buf) {
		return 0, ErrShortBuffer
	}
	return c.buf[c.pos], nil
}

// PeekU16 returns the big-endian uint16 at the current position
// without advancing.
func (c *Cursor) PeekU16() (uint16, error) {
	if c.pos < 0 || c.pos+2 > len(c.buf) {
		return 0, ErrShortBuffer
	}
	return uint16(c.buf[c.pos])<<8 | uint16(c.buf[c.pos+1]), nil
}

// PeekU32 returns the big-endian uint32 at the current position
// without advancing.
func (c *Cursor) PeekU32() (uint32, error) {
	if c.pos < 0 || c.pos+4 > len(c.buf) {
		return 0, ErrShortBuffer
	}
	b := c.buf[c.pos : c.pos+4]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// ReadU8 reads and advances past one byte.
func (c *Cursor) ReadU8() (uint8, error) {
	v, err := c.PeekU8()
	if err != nil {
		return 0, err
	}
	c.pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16 and advances past it.
func (c *Cursor) ReadU16() (uint16, error) {
	v, err := c.PeekU16()
	if err != nil {
		return 0, err
	}
	c.pos += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32 and advances past it.
func (c *Cursor) ReadU32() (uint32, error) {
	v, err := c.PeekU32()
	if err != nil {
		return 0, err
	}
	c.pos += 4
	return v, nil
}

// ReadSlice returns a borrowed n-byte subslice of the underlying buffer
// starting at the current position, and advances past it. The
// returned slice aliases the cursor's backing array and must not be
// retained past the buffer's lifetime without copying.
func (c *Cursor) ReadSlice(n int) ([]byte, error) {
	if n < 0 || c.pos < 0 || c.pos+n > len(c.buf) {
		return nil, ErrShortBuffer
	}
	s := c.buf[c.pos : c.pos+n]
	c.pos += n
	return s, nil
}
