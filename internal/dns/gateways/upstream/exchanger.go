// Package upstream sends encoded queries to a DNS server over UDP and waits
// for the reply, retrying attempts that time out.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/haukened/rr-dig/internal/dns/common/clock"
	"github.com/haukened/rr-dig/internal/dns/common/log"
	"github.com/haukened/rr-dig/internal/dns/domain"
	"github.com/haukened/rr-dig/internal/dns/gateways/wire"
)

// Error message constants for consistent error handling
const (
	errEmptyPayload      = "query payload is empty"
	errFailedToConnect   = "failed to connect to %s: %w"
	errSetDeadline       = "failed to set deadline: %w"
	errWriteFailed       = "write failed: %w"
	errReadFailed        = "read failed: %w"
	errAttemptsExhausted = "no reply from %s after %d attempts: %w"
	errBadTransition     = "illegal state transition %s -> %s"
)

// DialFunc defines a function type for establishing a network connection.
// It takes a context for cancellation, the network type (e.g., "tcp", "udp"),
// and the address to connect to, returning a net.Conn and an error if any occurs.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Options defines the collaborators of an Exchanger. Every field is optional.
type Options struct {
	// Dial opens the socket for each attempt. Defaults to net.Dialer.DialContext.
	Dial DialFunc
	// Clock times attempts and computes their deadlines. Defaults to the wall clock.
	// Deadlines are set on the sockets Dial returns, so when Dial hands out real
	// sockets Clock must track wall time.
	Clock clock.Clock
	// Logger receives retry warnings and state transitions. Defaults to a no-op logger.
	Logger log.Logger
	// OnRetry is called before each resend with the retry number (1-based) and
	// the retry budget.
	OnRetry func(retry, max int)
	// OnState is called on every state transition.
	OnState func(State)
}

// Result is a reply received by an exchange.
type Result struct {
	// Payload holds the datagram exactly as read, at most wire.MaxUDPMessageSize bytes.
	Payload []byte
	// Elapsed is the round-trip time of the attempt that got the reply.
	Elapsed time.Duration
	// Attempts counts the sends, including the successful one.
	Attempts int
}

// Retries returns how many timed-out attempts preceded the reply.
func (r Result) Retries() int {
	return r.Attempts - 1
}

// Exchanger runs the send/wait/retry loop for one query at a time. It holds no
// per-exchange state, so a single Exchanger may serve concurrent calls.
type Exchanger struct {
	dial    DialFunc
	clock   clock.Clock
	logger  log.Logger
	onRetry func(retry, max int)
	onState func(State)
}

// NewExchanger creates an Exchanger, filling in defaults for unset options.
func NewExchanger(opts Options) *Exchanger {
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Exchanger{
		dial:    opts.Dial,
		clock:   opts.Clock,
		logger:  opts.Logger,
		onRetry: opts.OnRetry,
		onState: opts.OnState,
	}
}

// exchange tracks the state of a single Exchange call.
type exchange struct {
	*Exchanger
	logger log.Logger
	state  State
}

func (x *exchange) transition(to State) {
	if !canTransition(x.state, to) {
		panic(fmt.Sprintf(errBadTransition, x.state, to))
	}
	x.logger.Debug(map[string]any{"from": x.state.String(), "to": to.String()}, "Exchange state changed")
	x.state = to
	if x.onState != nil {
		x.onState(to)
	}
}

// Exchange sends payload to the query's server and returns the first datagram
// received. Each attempt dials a fresh socket and waits at most q.Timeout; an
// attempt that times out is repeated until q.Attempts() sends have been made,
// after which the error wraps domain.ErrTimeoutExceeded. Any other socket
// error ends the exchange immediately. ctx is checked before every send.
// An invalid query is rejected before anything is sent.
func (e *Exchanger) Exchange(ctx context.Context, q domain.Query, payload []byte) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}
	if len(payload) == 0 {
		return Result{}, errors.New(errEmptyPayload)
	}

	addr := q.Address()
	x := &exchange{
		Exchanger: e,
		logger:    e.logger.With(map[string]any{"server": addr, "name": q.Name, "type": q.Type.String()}),
		state:     StateIdle,
	}

	attempts := q.Attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		x.transition(StateSending)
		reply, elapsed, err := x.attempt(ctx, addr, q.Timeout, payload)
		if err == nil {
			x.transition(StateSuccess)
			return Result{Payload: reply, Elapsed: elapsed, Attempts: attempt}, nil
		}
		// only a read that ran out of time is retried
		if x.state != StateWaiting || !isTimeout(err) {
			x.logger.Error(map[string]any{"attempt": attempt, "error": err.Error()}, "Exchange failed")
			return Result{}, err
		}

		x.transition(StateTimedOut)
		x.logger.Warn(map[string]any{
			"attempt":  attempt,
			"attempts": attempts,
			"timeout":  q.Timeout.String(),
		}, "Timed out waiting for reply")
		if attempt < attempts && x.onRetry != nil {
			x.onRetry(attempt, q.MaxRetries)
		}
	}

	x.transition(StateExhausted)
	return Result{}, fmt.Errorf(errAttemptsExhausted, addr, attempts, domain.ErrTimeoutExceeded)
}

// attempt performs one send and one bounded wait on its own socket. The
// socket is closed before attempt returns.
func (x *exchange) attempt(ctx context.Context, addr string, timeout time.Duration, payload []byte) ([]byte, time.Duration, error) {
	conn, err := x.dial(ctx, "udp", addr)
	if err != nil {
		return nil, 0, fmt.Errorf(errFailedToConnect, addr, err)
	}
	defer conn.Close()

	start := x.clock.Now()
	if err := conn.SetDeadline(start.Add(timeout)); err != nil {
		return nil, 0, fmt.Errorf(errSetDeadline, err)
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, 0, fmt.Errorf(errWriteFailed, err)
	}
	x.transition(StateWaiting)

	buffer := make([]byte, wire.MaxUDPMessageSize)
	n, err := conn.Read(buffer)
	if err != nil {
		return nil, 0, fmt.Errorf(errReadFailed, err)
	}
	elapsed := clock.Since(x.clock, start)

	x.logger.Debug(map[string]any{"bytes": n, "elapsed": elapsed.String()}, "Received reply")
	return buffer[:n], elapsed, nil
}

// isTimeout reports whether err is a socket deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
