package resolver

import (
	"context"

	"github.com/haukened/rr-dig/internal/dns/domain"
	"github.com/haukened/rr-dig/internal/dns/gateways/upstream"
)

// Codec converts a question to wire bytes and a reply back to records.
type Codec interface {
	EncodeQuery(query domain.Question) ([]byte, error)
	DecodeResponse(data []byte, expectedID uint16) (domain.Response, error)
}

// UpstreamExchanger sends an encoded query and waits for the reply,
// retrying on timeout.
type UpstreamExchanger interface {
	Exchange(ctx context.Context, query domain.Query, payload []byte) (upstream.Result, error)
}

// IDSource yields transaction ids.
type IDSource func() uint16
