package domain

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/haukened/rr-dig/internal/dns/common/utils"
)

// DefaultPort is the well-known DNS port.
const DefaultPort uint16 = 53

// Query describes a single lookup: which name and type to ask for, which
// server to ask, and how long to wait. It is built once from validated input
// and never modified afterwards.
type Query struct {
	Server     string
	Port       uint16
	Name       string
	Type       RRType
	Timeout    time.Duration
	MaxRetries int
}

// NewQuery constructs a Query, normalising the name to its canonical ASCII
// form, and validates its fields.
func NewQuery(server string, port uint16, name string, rrtype RRType, timeout time.Duration, maxRetries int) (Query, error) {
	ascii, err := utils.ASCIIName(name)
	if err != nil {
		return Query{}, fmt.Errorf("%w: %q: %v", ErrInvalidName, name, err)
	}
	q := Query{
		Server:     server,
		Port:       port,
		Name:       ascii,
		Type:       rrtype,
		Timeout:    timeout,
		MaxRetries: maxRetries,
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Validate checks whether the Query fields are structurally and semantically valid.
func (q Query) Validate() error {
	if q.Server == "" {
		return fmt.Errorf("%w: server address must not be empty", ErrInvalidQuery)
	}
	if q.Port == 0 {
		return fmt.Errorf("%w: port must be between 1 and 65535", ErrInvalidQuery)
	}
	if q.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidName)
	}
	if !q.Type.IsQueryable() {
		return fmt.Errorf("%w: unsupported query type %s", ErrInvalidQuery, q.Type)
	}
	if q.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidQuery, q.Timeout)
	}
	if q.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidQuery, q.MaxRetries)
	}
	return nil
}

// Address returns the host:port the query is sent to.
func (q Query) Address() string {
	return net.JoinHostPort(q.Server, strconv.Itoa(int(q.Port)))
}

// Attempts returns the total number of sends allowed for this query.
func (q Query) Attempts() int {
	return q.MaxRetries + 1
}
