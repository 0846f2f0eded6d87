// Package resolver orchestrates a single lookup: it picks a transaction id,
// encodes the question, exchanges it with the server and decodes the reply.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/miekg/dns"

	"github.com/haukened/rr-dig/internal/dns/common/log"
	"github.com/haukened/rr-dig/internal/dns/domain"
)

const (
	errCodecRequired    = "DNS codec is required"
	errUpstreamRequired = "upstream exchanger is required"
)

// RandomID returns a transaction id from a cryptographically secure source.
func RandomID() uint16 {
	return dns.Id()
}

type Resolver struct {
	codec    Codec
	ids      IDSource
	logger   log.Logger
	upstream UpstreamExchanger
}

type ResolverOptions struct {
	Codec    Codec
	IDs      IDSource
	Logger   log.Logger
	Upstream UpstreamExchanger
}

// NewResolver creates a Resolver. Codec and Upstream are required; IDs
// defaults to RandomID and Logger to a no-op logger.
func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Codec == nil {
		return nil, errors.New(errCodecRequired)
	}
	if opts.Upstream == nil {
		return nil, errors.New(errUpstreamRequired)
	}
	if opts.IDs == nil {
		opts.IDs = RandomID
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Resolver{
		codec:    opts.Codec,
		ids:      opts.IDs,
		logger:   opts.Logger,
		upstream: opts.Upstream,
	}, nil
}

// Resolve runs one lookup for q. The same transaction id is used for every
// attempt. A reply with no answers is returned as an outcome whose NotFound
// reports true.
//
// Errors:
//   - invalid queries and names are returned as produced by validation and encoding
//   - exhausted timeouts and other socket failures are a *domain.ResolutionFailedError
//   - replies that do not decode wrap domain.ErrMalformedMessage, unchanged
//   - a cancelled ctx returns ctx's error
func (r *Resolver) Resolve(ctx context.Context, q domain.Query) (domain.Outcome, error) {
	if err := q.Validate(); err != nil {
		return domain.Outcome{}, err
	}

	question := domain.NewQuestion(r.ids(), q)
	fields := map[string]any{
		"id":     question.ID,
		"name":   question.Name,
		"type":   question.Type.String(),
		"server": q.Address(),
	}
	r.logger.Debug(fields, "Resolving query")

	payload, err := r.codec.EncodeQuery(question)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("encode failed: %w", err)
	}

	result, err := r.upstream.Exchange(ctx, q, payload)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Outcome{}, err
		}
		reason := domain.ReasonNetwork
		if errors.Is(err, domain.ErrTimeoutExceeded) {
			reason = domain.ReasonMaxRetries
		}
		r.logger.Debug(fields, "Resolution failed: "+reason)
		return domain.Outcome{}, &domain.ResolutionFailedError{Reason: reason, Err: err}
	}

	resp, err := r.codec.DecodeResponse(result.Payload, question.ID)
	if err != nil {
		return domain.Outcome{}, err
	}

	outcome := domain.Outcome{
		Transaction: domain.Transaction{
			ID:       question.ID,
			Attempts: result.Attempts,
			Elapsed:  result.Elapsed,
		},
		Response: resp,
	}
	r.logger.Debug(map[string]any{
		"id":       question.ID,
		"records":  resp.RecordCount(),
		"rcode":    resp.Header.RCode().String(),
		"attempts": result.Attempts,
		"elapsed":  result.Elapsed.String(),
	}, "Resolved query")
	return outcome, nil
}
