// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package message

// Header is the owned, decoded form of a DNS message header.
type Header struct {
	ID      uint16
	QR      bool
	Opcode  uint8
	AA      bool
	TC      bool
	RD      bool
	RA      bool
	Z       bool
	AD      bool
	CD      bool
	RCode   uint8
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

func promoteHeader(h RawHeader) Header {
	return Header{
		ID:      h.ID(),
		QR:      h.QR(),
		Opcode:  h.Opcode(),
		AA:      h.AA(),
		TC:      h.TC(),
		RD:      h.RD(),
		RA:      h.RA(),
		Z:       h.Z(),
		AD:      h.AD(),
		CD:      h.CD(),
		RCode:   h.RCode(),
		QDCount: h.QDCount(),
		ANCount: h.ANCount(),
		NSCount: h.NSCount(),
		ARCount: h.ARCount(),
	}
}

// Question is the owned, decoded form of a DNS question entry.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

func promoteQuestion(q RawQuestion) (Question, error) {
	name, err := q.name.String()
	if err != nil {
		return Question{}, err
	}
	return Question{Name: name, Type: q.QType(), Class: q.QClass()}, nil
}

// Record is the owned, decoded form of a resource record. Data holds
// the typed projection for the closed set of record types this codec
// understands (spec.md §3); Raw always holds the original rdata bytes
// regardless of whether the type was projected.
type Record struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	Data  RecordData
	Raw   []byte
}

func promoteRecord(r RawRecord, buf []byte, m CompressionMap) (Record, error) {
	name, err := r.name.String()
	if err != nil {
		return Record{}, err
	}
	data, err := decodeRData(r, r.Type(), buf, m)
	if err != nil {
		return Record{}, err
	}
	rawCopy := make([]byte, len(r.RData()))
	copy(rawCopy, r.RData())
	return Record{
		Name:  name,
		Type:  r.Type(),
		Class: r.Class(),
		TTL:   r.TTL(),
		Data:  data,
		Raw:   rawCopy,
	}, nil
}

// Response is the owned, decoded form of a full DNS response message.
// Unlike RawResponse it does not borrow from the source buffer and
// may outlive it.
type Response struct {
	Header     Header
	Questions  []Question
	Answers    []Record
	Authority  []Record
	Additional []Record
}

// ParseResponse parses a complete DNS response message from buf. It
// returns a structural parse error (never a panic, per spec.md §7
// and property P4) if the buffer is malformed.
func ParseResponse(buf []byte) (*Response, error) {
	raw, err := NewRawResponse(buf)
	if err != nil {
		return nil, err
	}
	if err := raw.Init(); err != nil {
		return nil, err
	}

	resp := &Response{Header: promoteHeader(raw.Header)}

	for _, q := range raw.Questions() {
		pq, err := promoteQuestion(q)
		if err != nil {
			return nil, err
		}
		resp.Questions = append(resp.Questions, pq)
	}
	for _, rr := range raw.Answers() {
		pr, err := promoteRecord(rr, raw.Buffer(), raw.CompressionMap)
		if err != nil {
			return nil, err
		}
		resp.Answers = append(resp.Answers, pr)
	}
	for _, rr := range raw.Authority() {
		pr, err := promoteRecord(rr, raw.Buffer(), raw.CompressionMap)
		if err != nil {
			return nil, err
		}
		resp.Authority = append(resp.Authority, pr)
	}
	for _, rr := range raw.Additional() {
		pr, err := promoteRecord(rr, raw.Buffer(), raw.CompressionMap)
		if err != nil {
			return nil, err
		}
		resp.Additional = append(resp.Additional, pr)
	}

	return resp, nil
}
