// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package message

import (
	"net"

	"github.com/user00265/dnswire/wire"
)

// SOAData holds the decoded fields of an SOA rdata payload.
type SOAData struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// RecordData is the decoded, owned payload of a resource record whose
// type this codec projects into the typed layer. Exactly one field is
// populated, matching the record's Type.
type RecordData struct {
	A     net.IP // TypeA
	AAAA  net.IP // TypeAAAA
	CNAME string // TypeCNAME
	NS    string // TypeNS
	SOA   *SOAData
	TXT   [][]byte // TypeTXT, one element per length-prefixed string
}

// decodeRData dispatches on rtype and decodes rec.RData() accordingly.
// buf is the full parent message buffer and m its compression map;
// both are required because CNAME/NS/SOA payloads may contain
// compression pointers into the parent message. An unprojected type
// (anything outside the closed set in spec.md §3) returns a zero
// RecordData and no error: the raw bytes remain available via
// rec.RData() for a caller that wants them.
func decodeRData(rec RawRecord, rtype uint16, buf []byte, m CompressionMap) (RecordData, error) {
	rdata := rec.RData()

	switch rtype {
	case TypeA:
		if len(rdata) != 4 {
			return RecordData{}, ErrRDLengthMismatch
		}
		ip := make(net.IP, 4)
		copy(ip, rdata)
		return RecordData{A: ip}, nil

	case TypeAAAA:
		if len(rdata) != 16 {
			return RecordData{}, ErrRDLengthMismatch
		}
		ip := make(net.IP, 16)
		copy(ip, rdata)
		return RecordData{AAAA: ip}, nil

	case TypeCNAME:
		name, err := decodeNameAt(buf, rec, m)
		if err != nil {
			return RecordData{}, err
		}
		s, err := name.String()
		if err != nil {
			return RecordData{}, err
		}
		return RecordData{CNAME: s}, nil

	case TypeNS:
		name, err := decodeNameAt(buf, rec, m)
		if err != nil {
			return RecordData{}, err
		}
		s, err := name.String()
		if err != nil {
			return RecordData{}, err
		}
		return RecordData{NS: s}, nil

	case TypeSOA:
		end := rec.RDataStart() + len(rec.RData())
		c := wire.New(buf[:end])
		c.SetPos(rec.RDataStart())

		mname, err := DecodeName(c, m)
		if err != nil {
			return RecordData{}, err
		}
		mnameStr, err := mname.String()
		if err != nil {
			return RecordData{}, err
		}

		rname, err := DecodeName(c, m)
		if err != nil {
			return RecordData{}, err
		}
		rnameStr, err := rname.String()
		if err != nil {
			return RecordData{}, err
		}

		serial, err := c.ReadU32()
		if err != nil {
			return RecordData{}, ErrTruncatedSection
		}
		refresh, err := c.ReadU32()
		if err != nil {
			return RecordData{}, ErrTruncatedSection
		}
		retry, err := c.ReadU32()
		if err != nil {
			return RecordData{}, ErrTruncatedSection
		}
		expireVal, err := c.ReadU32()
		if err != nil {
			return RecordData{}, ErrTruncatedSection
		}
		minimum, err := c.ReadU32()
		if err != nil {
			return RecordData{}, ErrTruncatedSection
		}

		if c.Pos() != end {
			return RecordData{}, ErrRDLengthMismatch
		}

		return RecordData{SOA: &SOAData{
			MName:   mnameStr,
			RName:   rnameStr,
			Serial:  serial,
			Refresh: refresh,
			Retry:   retry,
			Expire:  expireVal,
			Minimum: minimum,
		}}, nil

	case TypeTXT:
		var strs [][]byte
		i := 0
		for i < len(rdata) {
			length := int(rdata[i])
			i++
			if i+length > len(rdata) {
				return RecordData{}, ErrRDLengthMismatch
			}
			s := make([]byte, length)
			copy(s, rdata[i:i+length])
			strs = append(strs, s)
			i += length
		}
		return RecordData{TXT: strs}, nil

	default:
		return RecordData{}, nil
	}
}

// decodeNameAt decodes a name occupying the entirety of rec's rdata,
// resolving compression pointers against m. Used for rdata payloads
// (CNAME, NS) whose name may point back into the message. buf is
// clamped to rec's rdlength boundary before decoding, and the decode
// must consume exactly rdlength bytes (spec.md §3's
// reader_position_after - rdlength_start == rdlength invariant) or it
// fails with ErrRDLengthMismatch instead of silently reading into
// whatever follows the record in the message.
func decodeNameAt(buf []byte, rec RawRecord, m CompressionMap) (Name, error) {
	end := rec.RDataStart() + len(rec.RData())
	c := wire.New(buf[:end])
	c.SetPos(rec.RDataStart())
	name, err := DecodeName(c, m)
	if err != nil {
		return Name{}, err
	}
	if c.Pos() != end {
		return Name{}, ErrRDLengthMismatch
	}
	return name, nil
}
