// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package message

import (
	"github.com/user00265/dnswire/wire"
)

// RawHeader is a borrowed 12-byte overlay of the DNS message header.
// Its accessors compute flag bitfields on demand from the underlying
// bytes rather than copying them into fields.
type RawHeader struct {
	b []byte
}

func readRawHeader(c *wire.Cursor) (RawHeader, error) {
	slice, err := c.ReadSlice(headerSize)
	if err != nil {
		return RawHeader{}, ErrTooShort
	}
	return RawHeader{b: slice}, nil
}

func (h RawHeader) ID() uint16      { return uint16(h.b[0])<<8 | uint16(h.b[1]) }
func (h RawHeader) QR() bool        { return h.b[2]&0x80 != 0 }
func (h RawHeader) Opcode() uint8   { return (h.b[2] >> 3) & 0x0F }
func (h RawHeader) AA() bool        { return h.b[2]&0x04 != 0 }
func (h RawHeader) TC() bool        { return h.b[2]&0x02 != 0 }
func (h RawHeader) RD() bool        { return h.b[2]&0x01 != 0 }
func (h RawHeader) RA() bool        { return h.b[3]&0x80 != 0 }
func (h RawHeader) Z() bool         { return h.b[3]&0x40 != 0 }
func (h RawHeader) AD() bool        { return h.b[3]&0x20 != 0 }
func (h RawHeader) CD() bool        { return h.b[3]&0x10 != 0 }
func (h RawHeader) RCode() uint8    { return h.b[3] & 0x0F }
func (h RawHeader) QDCount() uint16 { return uint16(h.b[4])<<8 | uint16(h.b[5]) }
func (h RawHeader) ANCount() uint16 { return uint16(h.b[6])<<8 | uint16(h.b[7]) }
func (h RawHeader) NSCount() uint16 { return uint16(h.b[8])<<8 | uint16(h.b[9]) }
func (h RawHeader) ARCount() uint16 { return uint16(h.b[10])<<8 | uint16(h.b[11]) }

// RawQuestion is a decoded name plus a borrowed 4-byte tail holding
// qtype and qclass.
type RawQuestion struct {
	name Name
	tail []byte
}

func readRawQuestion(c *wire.Cursor, m CompressionMap) (RawQuestion, error) {
	name, err := DecodeName(c, m)
	if err != nil {
		return RawQuestion{}, err
	}
	tail, err := c.ReadSlice(questionTailSize)
	if err != nil {
		return RawQuestion{}, ErrTruncatedSection
	}
	var q RawQuestion
	q.name = name
	q.tail = tail
	return q, nil
}

func (q RawQuestion) QType() uint16  { return uint16(q.tail[0])<<8 | uint16(q.tail[1]) }
func (q RawQuestion) QClass() uint16 { return uint16(q.tail[2])<<8 | uint16(q.tail[3]) }

// RawRecord is a decoded name, a borrowed tail (type, class, ttl,
// rdlength) and a borrowed rdata slice of length rdlength.
type RawRecord struct {
	name       Name
	tail       []byte
	rdata      []byte
	rdataStart int // absolute offset of rdata within the parent message
}

func readRawRecord(c *wire.Cursor, m CompressionMap) (RawRecord, error) {
	name, err := DecodeName(c, m)
	if err != nil {
		return RawRecord{}, err
	}
	tail, err := c.ReadSlice(recordTailSize)
	if err != nil {
		return RawRecord{}, ErrTruncatedSection
	}
	var r RawRecord
	r.name = name
	r.tail = tail

	rdlength := r.RDLength()
	rdataStart := c.Pos()
	rdata, err := c.ReadSlice(int(rdlength))
	if err != nil {
		return RawRecord{}, ErrTruncatedSection
	}
	if c.Pos()-rdataStart != int(rdlength) {
		return RawRecord{}, ErrRDLengthMismatch
	}
	r.rdata = rdata
	r.rdataStart = rdataStart
	return r, nil
}

func (r RawRecord) Type() uint16  { return uint16(r.tail[0])<<8 | uint16(r.tail[1]) }
func (r RawRecord) Class() uint16 { return uint16(r.tail[2])<<8 | uint16(r.tail[3]) }
func (r RawRecord) TTL() uint32 {
	return uint32(r.tail[4])<<24 | uint32(r.tail[5])<<16 | uint32(r.tail[6])<<8 | uint32(r.tail[7])
}
func (r RawRecord) RDLength() uint16    { return uint16(r.tail[8])<<8 | uint16(r.tail[9]) }
func (r RawRecord) RDataStart() int     { return r.rdataStart }
func (r RawRecord) RData() []byte       { return r.rdata }

// rawSections holds the parsed question/answer/authority/
// additional entries shared by RawRequest and RawResponse.
type rawSections struct {
	questions  []RawQuestion
	answers    []RawRecord
	authority  []RawRecord
	additional []RawRecord
}

// RawResponse is the raw view over a full response message: a cursor
// positioned past the header, the header itself, and (after Init) the
// four sections plus the compression map built while decoding them.
//
// Construction is two-phase: New validates the buffer is at least
// large enough to hold a header and parses only the header, so a
// caller can inspect it (e.g. to match a transaction ID) before
// paying for full section parsing. Init then consumes the remaining
// sections.
type RawResponse struct {
	cursor *wire.Cursor
	Header RawHeader
	rawSections
	CompressionMap CompressionMap
}

// NewRawResponse validates buf and parses its header.
func NewRawResponse(buf []byte) (*RawResponse, error) {
	if len(buf) < headerSize {
		return nil, ErrTooShort
	}
	c := wire.New(buf)
	h, err := readRawHeader(c)
	if err != nil {
		return nil, err
	}
	return &RawResponse{cursor: c, Header: h, CompressionMap: NewCompressionMap()}, nil
}

// Init consumes the question, answer, authority and additional
// sections named by the header's counts.
func (r *RawResponse) Init() error {
	for i := uint16(0); i < r.Header.QDCount(); i++ {
		q, err := readRawQuestion(r.cursor, r.CompressionMap)
		if err != nil {
			return err
		}
		r.questions = append(r.questions, q)
	}
	for i := uint16(0); i < r.Header.ANCount(); i++ {
		rr, err := readRawRecord(r.cursor, r.CompressionMap)
		if err != nil {
			return err
		}
		r.answers = append(r.answers, rr)
	}
	for i := uint16(0); i < r.Header.NSCount(); i++ {
		rr, err := readRawRecord(r.cursor, r.CompressionMap)
		if err != nil {
			return err
		}
		r.authority = append(r.authority, rr)
	}
	for i := uint16(0); i < r.Header.ARCount(); i++ {
		rr, err := readRawRecord(r.cursor, r.CompressionMap)
		if err != nil {
			return err
		}
		r.additional = append(r.additional, rr)
	}

	if int(r.Header.QDCount()) != len(r.questions) || int(r.Header.ANCount()) != len(r.answers) {
		return ErrCountMismatch
	}

	return nil
}

// RawRequest is the raw view over a request message: header plus the
// question section only (requests carry no answer/authority/
// additional records in this codec).
type RawRequest struct {
	cursor         *wire.Cursor
	Header         RawHeader
	questions      []RawQuestion
	CompressionMap CompressionMap
}

// NewRawRequest validates buf and parses its header.
func NewRawRequest(buf []byte) (*RawRequest, error) {
	if len(buf) < headerSize {
		return nil, ErrTooShort
	}
	c := wire.New(buf)
	h, err := readRawHeader(c)
	if err != nil {
		return nil, err
	}
	return &RawRequest{cursor: c, Header: h, CompressionMap: NewCompressionMap()}, nil
}

// Init consumes the question section named by the header's QDCOUNT.
func (r *RawRequest) Init() error {
	for i := uint16(0); i < r.Header.QDCount(); i++ {
		q, err := readRawQuestion(r.cursor, r.CompressionMap)
		if err != nil {
			return err
		}
		r.questions = append(r.questions, q)
	}
	if int(r.Header.QDCount()) != len(r.questions) {
		return ErrCountMismatch
	}
	return nil
}

// Buffer returns the full message buffer underlying r. Record-data
// dispatch needs it because name-bearing rdata (CNAME, NS, SOA) may
// itself contain compression pointers into the parent message.
func (r *RawResponse) Buffer() []byte { return r.cursor.Bytes() }

func (r *RawResponse) Questions() []RawQuestion  { return r.questions }
func (r *RawResponse) Answers() []RawRecord      { return r.answers }
func (r *RawResponse) Authority() []RawRecord    { return r.authority }
func (r *RawResponse) Additional() []RawRecord   { return r.additional }

func (r *RawRequest) Buffer() []byte          { return r.cursor.Bytes() }
func (r *RawRequest) Questions() []RawQuestion { return r.questions }
