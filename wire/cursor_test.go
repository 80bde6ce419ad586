// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package wire

import "testing"

func TestCursorReadsAdvancePosition(t *testing.T) {
	buf := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	c := New(buf)

	if got, _ := c.ReadU8(); got != 0 {
		t.Fatalf("ReadU8() = %d, want 0", got)
	}
	if c.Pos() != 1 {
		t.Fatalf("Pos() = %d, want 1", c.Pos())
	}

	got, err := c.ReadU16()
	if err != nil {
		t.Fatalf("ReadU16() error: %v", err)
	}
	if want := uint16(1)<<8 | 2; got != want {
		t.Fatalf("ReadU16() = %d, want %d", got, want)
	}
	if c.Pos() != 3 {
		t.Fatalf("Pos() = %d, want 3", c.Pos())
	}

	got32, err := c.ReadU32()
	if err != nil {
		t.Fatalf("ReadU32() error: %v", err)
	}
	want32 := uint32(3)<<24 | uint32(4)<<16 | uint32(5)<<8 | uint32(6)
	if got32 != want32 {
		t.Fatalf("ReadU32() = %d, want %d", got32, want32)
	}
	if c.Pos() != 7 {
		t.Fatalf("Pos() = %d, want 7", c.Pos())
	}
}

func TestCursorPeekDoesNotAdvance(t *testing.T) {
	c := New([]byte{0xAB, 0xCD})
	v, err := c.PeekU16()
	if err != nil {
		t.Fatalf("PeekU16() error: %v", err)
	}
	if v != 0xABCD {
		t.Fatalf("PeekU16() = %#x, want 0xABCD", v)
	}
	if c.Pos() != 0 {
		t.Fatalf("Pos() = %d after peek, want 0", c.Pos())
	}
}

func TestCursorReadSliceBorrows(t *testing.T) {
	buf := []byte{10, 20, 30, 40, 50}
	c := New(buf)
	c.Skip(1)
	s, err := c.ReadSlice(2)
	if err != nil {
		t.Fatalf("ReadSlice() error: %v", err)
	}
	if len(s) != 2 || s[0] != 20 || s[1] != 30 {
		t.Fatalf("ReadSlice() = %v, want [20 30]", s)
	}
	// Mutating the backing array is visible through the borrowed slice.
	buf[1] = 99
	if s[0] != 99 {
		t.Fatalf("ReadSlice() result does not alias source buffer")
	}
}

func TestCursorBoundsSafety(t *testing.T) {
	c := New([]byte{1, 2, 3})

	if _, err := c.ReadSlice(10); err != ErrShortBuffer {
		t.Fatalf("ReadSlice(10) error = %v, want ErrShortBuffer", err)
	}

	c.SetPos(2)
	if _, err := c.ReadU16(); err != ErrShortBuffer {
		t.Fatalf("ReadU16() at pos 2 of len 3 error = %v, want ErrShortBuffer", err)
	}

	c.SetPos(100)
	if _, err := c.ReadU8(); err != ErrShortBuffer {
		t.Fatalf("ReadU8() past end error = %v, want ErrShortBuffer", err)
	}
}

// Property P4: every prefix of a valid message must fail to parse
// cleanly rather than panic. The cursor is the layer that guarantees
// this for the rest of the codec.
func TestCursorNeverPanicsOnTruncatedInput(t *testing.T) {
	full := []byte{0xB4, 0xDB, 0x81, 0x80, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	for k := 0; k < len(full); k++ {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("prefix length %d panicked: %v", k, r)
				}
			}()
			c := New(full[:k])
			for i := 0; i < 4; i++ {
				if _, err := c.ReadU16(); err != nil {
					return
				}
			}
		}()
	}
}
