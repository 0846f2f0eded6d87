// Package wire provides encoding and decoding of DNS messages for UDP transport.
// It handles the DNS wire format as specified in RFC 1035.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/haukened/rr-dig/internal/dns/common/log"
	"github.com/haukened/rr-dig/internal/dns/domain"
)

// MaxUDPMessageSize is the largest reply handled: no EDNS, no TCP fallback.
const MaxUDPMessageSize = 512

const (
	rrFixedLength = 10 // type, class, ttl, rdlength
	questionTail  = 4  // qtype, qclass
)

const (
	errResponseTooShort = "response too short: %d bytes"
	errIDMismatch       = "ID mismatch: expected %d, got %d"
	errQuestionTrunc    = "question %d truncated"
	errRecordTrunc      = "record header at offset %d truncated"
	errRDataTrunc       = "rdata at offset %d declares %d bytes, %d available"
	errARecordLength    = "A record rdata must be 4 bytes, got %d"
	errMXRecordLength   = "MX record rdata too short: %d bytes"
	errRDataNameOverrun = "rdata name ends at offset %d, past declared end %d"
)

// udpCodec implements the DNSCodec interface for standard DNS over UDP messages.
type udpCodec struct {
	logger log.Logger
}

// NewUDPCodec creates and returns a new instance of udpCodec using the provided logger.
func NewUDPCodec(logger log.Logger) *udpCodec {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &udpCodec{
		logger: logger,
	}
}

// EncodeQuery serializes a Question into a binary format suitable for sending via UDP.
// The header carries a single question and the standard-query-with-recursion flags.
func (c *udpCodec) EncodeQuery(query domain.Question) ([]byte, error) {
	name, err := EncodeName(query.Name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(domain.HeaderSize + len(name) + questionTail)

	// Header
	_ = binary.Write(&buf, binary.BigEndian, query.ID)                  // ID
	_ = binary.Write(&buf, binary.BigEndian, domain.FlagsStandardQuery) // Flags: standard query, RD=1
	_ = binary.Write(&buf, binary.BigEndian, uint16(1))                 // QDCOUNT
	_ = binary.Write(&buf, binary.BigEndian, uint16(0))                 // ANCOUNT
	_ = binary.Write(&buf, binary.BigEndian, uint16(0))                 // NSCOUNT
	_ = binary.Write(&buf, binary.BigEndian, uint16(0))                 // ARCOUNT

	// Question
	buf.Write(name)
	_ = binary.Write(&buf, binary.BigEndian, uint16(query.Type))
	_ = binary.Write(&buf, binary.BigEndian, uint16(query.Class))

	c.logger.Debug(map[string]any{
		"id":    query.ID,
		"name":  query.Name,
		"type":  query.Type.String(),
		"class": query.Class.String(),
		"size":  buf.Len(),
	}, "Encoded DNS query")

	return buf.Bytes(), nil
}

// decodeHeader reads the fixed 12-byte header.
func decodeHeader(data []byte) (domain.Header, error) {
	if len(data) < domain.HeaderSize {
		return domain.Header{}, malformed(errResponseTooShort, len(data))
	}
	return domain.Header{
		ID:      binary.BigEndian.Uint16(data[0:2]),
		Flags:   binary.BigEndian.Uint16(data[2:4]),
		QDCount: binary.BigEndian.Uint16(data[4:6]),
		ANCount: binary.BigEndian.Uint16(data[6:8]),
		NSCount: binary.BigEndian.Uint16(data[8:10]),
		ARCount: binary.BigEndian.Uint16(data[10:12]),
	}, nil
}

// DecodeResponse parses a raw DNS response from a UDP packet, validating the
// transaction id and extracting the answer records in order. A header that
// declares no answers yields an empty response rather than an error.
func (c *udpCodec) DecodeResponse(data []byte, expectedID uint16) (domain.Response, error) {
	header, err := decodeHeader(data)
	if err != nil {
		return domain.Response{}, err
	}
	if header.ID != expectedID {
		return domain.Response{}, malformed(errIDMismatch, expectedID, header.ID)
	}

	c.logger.Debug(map[string]any{
		"id":    header.ID,
		"rcode": header.RCode().String(),
		"qd":    header.QDCount,
		"an":    header.ANCount,
		"ns":    header.NSCount,
		"ar":    header.ARCount,
		"size":  len(data),
	}, "Decoded DNS response header")

	if header.ANCount == 0 {
		return domain.NewEmptyResponse(header), nil
	}

	offset := domain.HeaderSize
	// Skip questions
	for i := 0; i < int(header.QDCount); i++ {
		offset, err = SkipName(data, offset)
		if err != nil {
			return domain.Response{}, fmt.Errorf("failed to skip question %d: %w", i, err)
		}
		if offset+questionTail > len(data) {
			return domain.Response{}, malformed(errQuestionTrunc, i)
		}
		offset += questionTail
	}

	// Parse answers
	records := make([]domain.ResourceRecord, 0, header.ANCount)
	for i := 0; i < int(header.ANCount); i++ {
		rr, newOffset, err := c.parseResourceRecord(data, offset)
		if err != nil {
			return domain.Response{}, fmt.Errorf("failed to parse answer record %d: %w", i, err)
		}
		records = append(records, rr)
		offset = newOffset
	}

	return domain.Response{
		Header:  header,
		Records: records,
	}, nil
}

// parseResourceRecord extracts a single resource record starting at offset.
// The returned offset is always the end of the declared rdata, whatever the
// type-specific decoder consumed.
func (c *udpCodec) parseResourceRecord(data []byte, offset int) (domain.ResourceRecord, int, error) {
	name, offset, err := DecodeName(data, offset)
	if err != nil {
		return domain.ResourceRecord{}, 0, fmt.Errorf("failed to decode record name: %w", err)
	}

	if offset+rrFixedLength > len(data) {
		return domain.ResourceRecord{}, 0, malformed(errRecordTrunc, offset)
	}
	rrtype := domain.RRType(binary.BigEndian.Uint16(data[offset : offset+2]))
	class := domain.RRClass(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
	ttl := binary.BigEndian.Uint32(data[offset+4 : offset+8])
	rdLen := int(binary.BigEndian.Uint16(data[offset+8 : offset+10]))
	offset += rrFixedLength

	if offset+rdLen > len(data) {
		return domain.ResourceRecord{}, 0, malformed(errRDataTrunc, offset, rdLen, len(data)-offset)
	}

	rdata, err := decodeRData(data, rrtype, offset, rdLen)
	if err != nil {
		return domain.ResourceRecord{}, 0, fmt.Errorf("failed to decode %s rdata: %w", rrtype, err)
	}

	rr, err := domain.NewResourceRecord(name, rrtype, class, ttl, rdata)
	if err != nil {
		return domain.ResourceRecord{}, 0, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	c.logger.Debug(map[string]any{
		"name":  rr.Name,
		"type":  rr.Type.String(),
		"class": rr.Class.String(),
		"ttl":   rr.TTL,
		"dlen":  rdLen,
	}, "Decoded answer record")

	return rr, offset + rdLen, nil
}

// decodeRData interprets the rdata at offset according to rrtype. Names
// inside rdata are decoded against the whole message so that compression
// pointers resolve. Types other than A, NS, CNAME and MX are kept opaque.
func decodeRData(data []byte, rrtype domain.RRType, offset, length int) (domain.RData, error) {
	switch rrtype {
	case domain.RRTypeA:
		if length != 4 {
			return nil, malformed(errARecordLength, length)
		}
		return domain.AData{Addr: netip.AddrFrom4([4]byte(data[offset : offset+4]))}, nil
	case domain.RRTypeNS:
		host, err := decodeRDataName(data, offset, offset+length)
		if err != nil {
			return nil, err
		}
		return domain.NSData{Host: host}, nil
	case domain.RRTypeCNAME:
		target, err := decodeRDataName(data, offset, offset+length)
		if err != nil {
			return nil, err
		}
		return domain.CNAMEData{Target: target}, nil
	case domain.RRTypeMX:
		if length < 3 {
			return nil, malformed(errMXRecordLength, length)
		}
		pref := binary.BigEndian.Uint16(data[offset : offset+2])
		exchange, err := decodeRDataName(data, offset+2, offset+length)
		if err != nil {
			return nil, err
		}
		return domain.MXData{Preference: pref, Exchange: exchange}, nil
	default:
		raw := make([]byte, length)
		copy(raw, data[offset:offset+length])
		return domain.OpaqueData{Raw: raw}, nil
	}
}

// decodeRDataName decodes a name starting at offset whose uncompressed part
// must end at or before end. Pointers may still resolve anywhere earlier in
// the message.
func decodeRDataName(data []byte, offset, end int) (string, error) {
	name, next, err := DecodeName(data, offset)
	if err != nil {
		return "", err
	}
	if next > end {
		return "", malformed(errRDataNameOverrun, next, end)
	}
	return name, nil
}

var _ DNSCodec = &udpCodec{}
