package wire

import (
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/bassosimone/runtimex"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/dns/dnsmessage"

	"github.com/haukened/rr-dig/internal/dns/common/log"
	"github.com/haukened/rr-dig/internal/dns/domain"
)

const testID uint16 = 0xBEEF

// appendHeader appends a DNS header with the given counts.
func appendHeader(b []byte, id, flags, qd, an uint16) []byte {
	b = binary.BigEndian.AppendUint16(b, id)
	b = binary.BigEndian.AppendUint16(b, flags)
	b = binary.BigEndian.AppendUint16(b, qd)
	b = binary.BigEndian.AppendUint16(b, an)
	b = binary.BigEndian.AppendUint16(b, 0) // NSCOUNT
	b = binary.BigEndian.AppendUint16(b, 0) // ARCOUNT
	return b
}

// appendRR appends a resource record whose owner name is already wire encoded.
func appendRR(b, owner []byte, rrtype uint16, ttl uint32, rdata []byte) []byte {
	b = append(b, owner...)
	b = binary.BigEndian.AppendUint16(b, rrtype)
	b = binary.BigEndian.AppendUint16(b, 1) // IN
	b = binary.BigEndian.AppendUint32(b, ttl)
	b = binary.BigEndian.AppendUint16(b, uint16(len(rdata)))
	return append(b, rdata...)
}

// exampleQuestion is the question section for example.com; the name starts at offset 12.
func exampleQuestion(b []byte, qtype uint16) []byte {
	b = appendLabels(b, "example", "com")
	b = binary.BigEndian.AppendUint16(b, qtype)
	return binary.BigEndian.AppendUint16(b, 1)
}

var ptrToQuestion = []byte{0xC0, 12}

func newTestCodec() *udpCodec {
	return NewUDPCodec(log.NewNoopLogger())
}

func TestUdpCodec_EncodeQuery(t *testing.T) {
	codec := newTestCodec()

	tests := []struct {
		name     string
		query    domain.Question
		wantErr  string
		expected []byte
	}{
		{
			name:  "A query",
			query: domain.Question{ID: 12345, Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN},
			expected: func() []byte {
				b := appendHeader(nil, 12345, 0x0100, 1, 0)
				return exampleQuestion(b, 1)
			}(),
		},
		{
			name:  "MX query",
			query: domain.Question{ID: 1, Name: "example.com.", Type: domain.RRTypeMX, Class: domain.RRClassIN},
			expected: func() []byte {
				b := appendHeader(nil, 1, 0x0100, 1, 0)
				return exampleQuestion(b, 15)
			}(),
		},
		{
			name:    "empty name",
			query:   domain.Question{ID: 1, Name: "", Type: domain.RRTypeA, Class: domain.RRClassIN},
			wantErr: "name must not be empty",
		},
		{
			name: "long label error",
			query: domain.Question{
				ID:    1,
				Name:  "this-is-a-very-long-label-that-exceeds-the-maximum-allowed-length-of-63-characters-for-dns-labels.com.",
				Type:  domain.RRTypeA,
				Class: domain.RRClassIN,
			},
			wantErr: "label too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := codec.EncodeQuery(tt.query)

			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidName))
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, result)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestUdpCodec_EncodeQuery_ParsesWithMiekg(t *testing.T) {
	codec := newTestCodec()

	for _, qt := range []domain.RRType{domain.RRTypeA, domain.RRTypeNS, domain.RRTypeCNAME, domain.RRTypeMX} {
		t.Run(qt.String(), func(t *testing.T) {
			raw, err := codec.EncodeQuery(domain.Question{ID: 4321, Name: "www.example.org", Type: qt, Class: domain.RRClassIN})
			require.NoError(t, err)

			msg := new(dns.Msg)
			require.NoError(t, msg.Unpack(raw))
			assert.Equal(t, uint16(4321), msg.Id)
			assert.False(t, msg.Response)
			assert.True(t, msg.RecursionDesired)
			assert.Equal(t, dns.OpcodeQuery, msg.Opcode)
			require.Len(t, msg.Question, 1)
			assert.Equal(t, "www.example.org.", msg.Question[0].Name)
			assert.Equal(t, uint16(qt), msg.Question[0].Qtype)
			assert.Equal(t, uint16(dns.ClassINET), msg.Question[0].Qclass)
			assert.Empty(t, msg.Answer)
		})
	}
}

func TestUdpCodec_DecodeResponse_ARecord(t *testing.T) {
	codec := newTestCodec()

	data := appendHeader(nil, testID, 0x8180, 1, 1)
	data = exampleQuestion(data, 1)
	data = appendRR(data, ptrToQuestion, 1, 300, []byte{93, 184, 216, 34})

	resp, err := codec.DecodeResponse(data, testID)
	require.NoError(t, err)

	assert.False(t, resp.Empty)
	assert.Equal(t, testID, resp.Header.ID)
	assert.True(t, resp.Header.QR())
	assert.Equal(t, domain.RCodeNoError, resp.Header.RCode())
	require.Len(t, resp.Records, 1)

	rr := resp.Records[0]
	assert.Equal(t, "example.com", rr.Name)
	assert.Equal(t, domain.RRTypeA, rr.Type)
	assert.Equal(t, domain.RRClassIN, rr.Class)
	assert.Equal(t, uint32(300), rr.TTL)
	assert.Equal(t, domain.AData{Addr: netip.MustParseAddr("93.184.216.34")}, rr.Data)
}

func TestUdpCodec_DecodeResponse_MXRecord(t *testing.T) {
	codec := newTestCodec()

	// exchange "mail" + pointer to example.com in the question
	rdata := []byte{0, 10, 4, 'm', 'a', 'i', 'l', 0xC0, 12}

	data := appendHeader(nil, testID, 0x8180, 1, 1)
	data = exampleQuestion(data, 15)
	data = appendRR(data, ptrToQuestion, 15, 3600, rdata)

	resp, err := codec.DecodeResponse(data, testID)
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)

	rr := resp.Records[0]
	assert.Equal(t, domain.RRTypeMX, rr.Type)
	assert.Equal(t, uint32(3600), rr.TTL)
	assert.Equal(t, domain.MXData{Preference: 10, Exchange: "mail.example.com"}, rr.Data)
}

func TestUdpCodec_DecodeResponse_CompressionMatchesSpelledOut(t *testing.T) {
	codec := newTestCodec()

	compressed := appendHeader(nil, testID, 0x8180, 1, 3)
	compressed = exampleQuestion(compressed, 15)
	compressed = appendRR(compressed, ptrToQuestion, 15, 60, []byte{0, 5, 3, 'm', 'x', '1', 0xC0, 12})
	compressed = appendRR(compressed, ptrToQuestion, 2, 60, []byte{3, 'n', 's', '1', 0xC0, 12})
	compressed = appendRR(compressed, []byte{3, 'w', 'w', 'w', 0xC0, 12}, 5, 60, ptrToQuestion)

	fullName := appendLabels(nil, "example", "com")
	spelled := appendHeader(nil, testID, 0x8180, 1, 3)
	spelled = exampleQuestion(spelled, 15)
	spelled = appendRR(spelled, fullName, 15, 60, append([]byte{0, 5}, appendLabels(nil, "mx1", "example", "com")...))
	spelled = appendRR(spelled, fullName, 2, 60, appendLabels(nil, "ns1", "example", "com"))
	spelled = appendRR(spelled, appendLabels(nil, "www", "example", "com"), 5, 60, fullName)

	fromCompressed, err := codec.DecodeResponse(compressed, testID)
	require.NoError(t, err)
	fromSpelled, err := codec.DecodeResponse(spelled, testID)
	require.NoError(t, err)

	assert.Equal(t, fromSpelled.Records, fromCompressed.Records)
	assert.Equal(t, []domain.ResourceRecord{
		{Name: "example.com", Type: domain.RRTypeMX, Class: domain.RRClassIN, TTL: 60, Data: domain.MXData{Preference: 5, Exchange: "mx1.example.com"}},
		{Name: "example.com", Type: domain.RRTypeNS, Class: domain.RRClassIN, TTL: 60, Data: domain.NSData{Host: "ns1.example.com"}},
		{Name: "www.example.com", Type: domain.RRTypeCNAME, Class: domain.RRClassIN, TTL: 60, Data: domain.CNAMEData{Target: "example.com"}},
	}, fromCompressed.Records)
}

func TestUdpCodec_DecodeResponse_MiekgCompressedMessage(t *testing.T) {
	codec := newTestCodec()

	msg := new(dns.Msg)
	msg.Id = testID
	msg.Response = true
	msg.RecursionDesired = true
	msg.RecursionAvailable = true
	msg.Question = []dns.Question{{Name: "example.com.", Qtype: dns.TypeA, Qclass: dns.ClassINET}}
	hdr := func(name string, rrtype uint16) dns.RR_Header {
		return dns.RR_Header{Name: name, Rrtype: rrtype, Class: dns.ClassINET, Ttl: 120}
	}
	msg.Answer = []dns.RR{
		&dns.CNAME{Hdr: hdr("example.com.", dns.TypeCNAME), Target: "edge.cdn.example.com."},
		&dns.A{Hdr: hdr("edge.cdn.example.com.", dns.TypeA), A: net.ParseIP("192.0.2.10")},
		&dns.A{Hdr: hdr("edge.cdn.example.com.", dns.TypeA), A: net.ParseIP("192.0.2.11")},
		&dns.MX{Hdr: hdr("example.com.", dns.TypeMX), Preference: 20, Mx: "mx.edge.cdn.example.com."},
		&dns.NS{Hdr: hdr("example.com.", dns.TypeNS), Ns: "ns.cdn.example.com."},
		&dns.TXT{Hdr: hdr("example.com.", dns.TypeTXT), Txt: []string{"v=spf1 -all"}},
	}
	msg.Compress = true
	raw := runtimex.PanicOnError1(msg.Pack())

	resp, err := codec.DecodeResponse(raw, testID)
	require.NoError(t, err)
	require.Len(t, resp.Records, 6)

	assert.Equal(t, domain.CNAMEData{Target: "edge.cdn.example.com"}, resp.Records[0].Data)
	assert.Equal(t, "edge.cdn.example.com", resp.Records[1].Name)
	assert.Equal(t, domain.AData{Addr: netip.MustParseAddr("192.0.2.10")}, resp.Records[1].Data)
	assert.Equal(t, domain.AData{Addr: netip.MustParseAddr("192.0.2.11")}, resp.Records[2].Data)
	assert.Equal(t, domain.MXData{Preference: 20, Exchange: "mx.edge.cdn.example.com"}, resp.Records[3].Data)
	assert.Equal(t, domain.NSData{Host: "ns.cdn.example.com"}, resp.Records[4].Data)

	txt := resp.Records[5]
	assert.Equal(t, domain.RRTypeTXT, txt.Type)
	assert.Equal(t, domain.OpaqueData{Raw: append([]byte{11}, "v=spf1 -all"...)}, txt.Data)
	for _, rr := range resp.Records {
		assert.Equal(t, uint32(120), rr.TTL)
	}
}

func TestUdpCodec_DecodeResponse_DNSMessageBuilder(t *testing.T) {
	codec := newTestCodec()

	name := dnsmessage.MustNewName("example.net.")
	b := dnsmessage.NewBuilder(make([]byte, 0, 512), dnsmessage.Header{ID: testID, Response: true, RecursionDesired: true})
	b.EnableCompression()
	require.NoError(t, b.StartQuestions())
	require.NoError(t, b.Question(dnsmessage.Question{Name: name, Type: dnsmessage.TypeNS, Class: dnsmessage.ClassINET}))
	require.NoError(t, b.StartAnswers())
	for _, ns := range []string{"a.iana-servers.example.net.", "b.iana-servers.example.net."} {
		require.NoError(t, b.NSResource(
			dnsmessage.ResourceHeader{Name: name, Class: dnsmessage.ClassINET, TTL: 86400},
			dnsmessage.NSResource{NS: dnsmessage.MustNewName(ns)},
		))
	}
	raw, err := b.Finish()
	require.NoError(t, err)

	resp, err := codec.DecodeResponse(raw, testID)
	require.NoError(t, err)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, domain.NSData{Host: "a.iana-servers.example.net"}, resp.Records[0].Data)
	assert.Equal(t, domain.NSData{Host: "b.iana-servers.example.net"}, resp.Records[1].Data)
	assert.Equal(t, "example.net", resp.Records[1].Name)
	assert.Equal(t, uint32(86400), resp.Records[1].TTL)
}

func TestUdpCodec_DecodeResponse_NoAnswers(t *testing.T) {
	codec := newTestCodec()

	// NXDOMAIN with an empty answer section
	data := appendHeader(nil, testID, 0x8183, 1, 0)
	data = exampleQuestion(data, 1)

	resp, err := codec.DecodeResponse(data, testID)
	require.NoError(t, err)
	assert.True(t, resp.Empty)
	assert.Nil(t, resp.Records)
	assert.Equal(t, domain.RCodeNXDomain, resp.Header.RCode())

	// the question section is not even inspected when there is nothing to decode
	headerOnly := appendHeader(nil, testID, 0x8180, 1, 0)
	resp, err = codec.DecodeResponse(headerOnly, testID)
	require.NoError(t, err)
	assert.True(t, resp.Empty)
}

func TestUdpCodec_DecodeResponse_UnknownTypeIsSkippedByLength(t *testing.T) {
	codec := newTestCodec()

	aaaa := make([]byte, 16)
	aaaa[0], aaaa[1], aaaa[15] = 0x20, 0x01, 0x01

	data := appendHeader(nil, testID, 0x8180, 1, 3)
	data = exampleQuestion(data, 1)
	data = appendRR(data, ptrToQuestion, 28, 30, aaaa)
	data = appendRR(data, ptrToQuestion, 99, 30, []byte{})
	data = appendRR(data, ptrToQuestion, 1, 30, []byte{10, 0, 0, 1})

	resp, err := codec.DecodeResponse(data, testID)
	require.NoError(t, err)
	require.Len(t, resp.Records, 3)
	assert.Equal(t, domain.OpaqueData{Raw: aaaa}, resp.Records[0].Data)
	assert.Equal(t, domain.RRType(99), resp.Records[1].Type)
	assert.Equal(t, domain.OpaqueData{Raw: []byte{}}, resp.Records[1].Data)
	assert.Equal(t, domain.AData{Addr: netip.MustParseAddr("10.0.0.1")}, resp.Records[2].Data)
}

func TestUdpCodec_DecodeResponse_CursorAdvancesByRDLength(t *testing.T) {
	codec := newTestCodec()

	// The CNAME rdata declares 6 bytes: a 2-byte pointer followed by 4 bytes of
	// padding the name decoder never reads. The next record must start after it.
	data := appendHeader(nil, testID, 0x8180, 1, 2)
	data = exampleQuestion(data, 5)
	data = appendRR(data, ptrToQuestion, 5, 10, []byte{0xC0, 12, 0xDE, 0xAD, 0xBE, 0xEF})
	data = appendRR(data, ptrToQuestion, 1, 10, []byte{192, 0, 2, 1})

	resp, err := codec.DecodeResponse(data, testID)
	require.NoError(t, err)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, domain.CNAMEData{Target: "example.com"}, resp.Records[0].Data)
	assert.Equal(t, domain.AData{Addr: netip.MustParseAddr("192.0.2.1")}, resp.Records[1].Data)
}

func TestUdpCodec_DecodeResponse_Idempotent(t *testing.T) {
	codec := newTestCodec()

	data := appendHeader(nil, testID, 0x8180, 1, 2)
	data = exampleQuestion(data, 15)
	data = appendRR(data, ptrToQuestion, 15, 300, []byte{0, 10, 4, 'm', 'a', 'i', 'l', 0xC0, 12})
	data = appendRR(data, ptrToQuestion, 15, 300, []byte{0, 20, 5, 'b', 'a', 'c', 'k', 'p', 0xC0, 12})
	snapshot := append([]byte(nil), data...)

	first, err := codec.DecodeResponse(data, testID)
	require.NoError(t, err)
	second, err := codec.DecodeResponse(data, testID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, data, "decoding must not modify the buffer")
}

func TestUdpCodec_DecodeResponse_Malformed(t *testing.T) {
	codec := newTestCodec()

	base := func(an uint16) []byte {
		b := appendHeader(nil, testID, 0x8180, 1, an)
		return exampleQuestion(b, 1)
	}

	tests := []struct {
		name    string
		data    []byte
		id      uint16
		wantErr string
	}{
		{
			name:    "too short",
			data:    []byte{1, 2, 3, 4, 5},
			id:      testID,
			wantErr: "response too short",
		},
		{
			name:    "ID mismatch",
			data:    appendRR(base(1), ptrToQuestion, 1, 1, []byte{1, 2, 3, 4}),
			id:      testID + 1,
			wantErr: "ID mismatch",
		},
		{
			name:    "question truncated",
			data:    appendHeader(nil, testID, 0x8180, 1, 1),
			id:      testID,
			wantErr: "failed to skip question 0",
		},
		{
			name:    "question missing type and class",
			data:    appendLabels(appendHeader(nil, testID, 0x8180, 1, 1), "example", "com"),
			id:      testID,
			wantErr: "question 0 truncated",
		},
		{
			name:    "answer count exceeds records",
			data:    appendRR(base(2), ptrToQuestion, 1, 1, []byte{1, 2, 3, 4}),
			id:      testID,
			wantErr: "failed to parse answer record 1",
		},
		{
			name:    "record header truncated",
			data:    append(base(1), 0xC0, 12, 0, 1, 0, 1),
			id:      testID,
			wantErr: "record header at offset",
		},
		{
			name: "rdata longer than message",
			data: func() []byte {
				b := append(base(1), 0xC0, 12)
				b = binary.BigEndian.AppendUint16(b, 1)
				b = binary.BigEndian.AppendUint16(b, 1)
				b = binary.BigEndian.AppendUint32(b, 60)
				b = binary.BigEndian.AppendUint16(b, 4)
				return append(b, 1, 2)
			}(),
			id:      testID,
			wantErr: "declares 4 bytes, 2 available",
		},
		{
			name:    "A record with wrong length",
			data:    appendRR(base(1), ptrToQuestion, 1, 1, []byte{1, 2, 3}),
			id:      testID,
			wantErr: "A record rdata must be 4 bytes",
		},
		{
			name:    "MX record too short",
			data:    appendRR(base(1), ptrToQuestion, 15, 1, []byte{0, 1}),
			id:      testID,
			wantErr: "MX record rdata too short",
		},
		{
			name:    "record name points forward",
			data:    appendRR(base(1), []byte{0xC0, 0xFF}, 1, 1, []byte{1, 2, 3, 4}),
			id:      testID,
			wantErr: "points forward",
		},
		{
			name:    "CNAME target points at itself",
			data:    appendRR(base(1), ptrToQuestion, 5, 1, []byte{0xC0, 41}),
			id:      testID,
			wantErr: "points forward",
		},
		{
			name: "NS with empty rdata borrows next record",
			data: func() []byte {
				b := appendRR(base(2), ptrToQuestion, 2, 1, []byte{})
				return appendRR(b, []byte{1, 'a', 0}, 99, 1, []byte{})
			}(),
			id:      testID,
			wantErr: "past declared end",
		},
		{
			name: "CNAME target runs past rdlength",
			data: func() []byte {
				b := appendRR(base(2), ptrToQuestion, 5, 1, []byte{2, 'a', 'b'})
				return appendRR(b, []byte{0}, 99, 1, []byte{})
			}(),
			id:      testID,
			wantErr: "past declared end",
		},
		{
			name: "MX exchange runs past rdlength",
			data: func() []byte {
				b := appendRR(base(2), ptrToQuestion, 15, 1, []byte{0, 10, 2, 'm', 'x'})
				return appendRR(b, []byte{0}, 99, 1, []byte{})
			}(),
			id:      testID,
			wantErr: "past declared end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := codec.DecodeResponse(tt.data, tt.id)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedMessage), "expected ErrMalformedMessage, got %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, domain.Response{}, resp)
		})
	}
}

func TestNewUDPCodec_NilLogger(t *testing.T) {
	codec := NewUDPCodec(nil)
	require.NotNil(t, codec)
	_, err := codec.EncodeQuery(domain.Question{ID: 1, Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN})
	assert.NoError(t, err)
}
