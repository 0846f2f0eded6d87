package wire

import (
	"github.com/haukened/rr-dig/internal/dns/domain"
)

// DNSCodec converts between domain values and DNS wire-format messages.
type DNSCodec interface {
	// EncodeQuery serialises a single-question query carrying query.ID.
	EncodeQuery(query domain.Question) ([]byte, error)

	// DecodeResponse parses a reply to the query with the given transaction id.
	// Only the header and the answer section are decoded.
	DecodeResponse(data []byte, expectedID uint16) (domain.Response, error)
}
