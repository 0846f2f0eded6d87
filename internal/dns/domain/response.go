package domain

import "time"

// Response is a decoded DNS reply. Empty is set when the header declared no
// answers; it is an outcome, not an error.
type Response struct {
	Header  Header
	Records []ResourceRecord
	Empty   bool
}

// NewEmptyResponse returns the "no records" result for a header with ancount 0.
func NewEmptyResponse(h Header) Response {
	return Response{Header: h, Empty: true}
}

// RecordCount returns the number of decoded answer records.
func (r Response) RecordCount() int {
	return len(r.Records)
}

// Transaction describes the exchange that produced a reply.
type Transaction struct {
	ID       uint16
	Attempts int
	Elapsed  time.Duration
}

// Retries returns how many attempts beyond the first were needed.
func (t Transaction) Retries() int {
	if t.Attempts <= 1 {
		return 0
	}
	return t.Attempts - 1
}

// Outcome is what a resolution hands to the renderer.
type Outcome struct {
	Transaction Transaction
	Response    Response
}

// NotFound reports whether the server answered with no records.
func (o Outcome) NotFound() bool {
	return o.Response.Empty
}
