package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/haukened/rr-dig/internal/dns/common/log"
	"github.com/haukened/rr-dig/internal/dns/common/rrdata"
	"github.com/haukened/rr-dig/internal/dns/config"
	"github.com/haukened/rr-dig/internal/dns/domain"
	"github.com/haukened/rr-dig/internal/dns/gateways/upstream"
	"github.com/haukened/rr-dig/internal/dns/gateways/wire"
	"github.com/haukened/rr-dig/internal/dns/services/resolver"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "rr-dig"

	usage = "usage: rr-dig [-t timeout] [-r max-retries] [-p port] [-mx|-ns] @server name"
)

// User facing error messages.
const (
	msgBothTypes       = "Only one of -mx or -ns can be specified at a time."
	msgTimeout         = "Timeout (-t) must be a positive integer."
	msgRetries         = "Maximum retries (-r) must be a non-negative integer."
	msgPort            = "Port (-p) must be between 1 and 65535."
	msgServerPrefix    = "Server address must be prefixed with '@'. For example: @8.8.8.8"
	msgServerInvalid   = "Invalid server address: %q"
	msgNameRequired    = "Domain name must not be empty."
	msgPositional      = "Incorrect input syntax: expected @server and name. " + usage
	msgMaxRetries      = "Maximum retries reached without response."
	msgRetryingTimeout = "Retry %d/%d due to timeout...\n"
)

// cliArgs holds the parsed command line. Flag defaults come from config.
type cliArgs struct {
	Timeout int `validate:"gt=0"`
	Retries int `validate:"gte=0"`
	Port    int `validate:"gte=1,lte=65535"`
	MX      bool
	NS      bool
	Server  string `validate:"required,server_addr"`
	Name    string `validate:"required"`
}

// RRType returns the record type selected by the -mx and -ns flags.
func (a cliArgs) RRType() domain.RRType {
	switch {
	case a.MX:
		return domain.RRTypeMX
	case a.NS:
		return domain.RRTypeNS
	default:
		return domain.RRTypeA
	}
}

// usageError is a problem with the command line, reported with its message only.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

// parseArgs parses args, which may interleave flags and the two positional
// arguments, and validates the result.
func parseArgs(args []string, defaults config.AppConfig, stderr io.Writer) (cliArgs, error) {
	a := cliArgs{
		Timeout: defaults.Timeout,
		Retries: defaults.Retries,
		Port:    defaults.Port,
	}

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}
	fs.IntVar(&a.Timeout, "t", a.Timeout, "seconds to wait for each reply")
	fs.IntVar(&a.Retries, "r", a.Retries, "resends after a timeout")
	fs.IntVar(&a.Port, "p", a.Port, "server port")
	fs.BoolVar(&a.MX, "mx", false, "query MX records")
	fs.BoolVar(&a.NS, "ns", false, "query NS records")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return cliArgs{}, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}

	if a.MX && a.NS {
		return cliArgs{}, &usageError{msgBothTypes}
	}
	if len(positional) != 2 {
		return cliArgs{}, &usageError{msgPositional}
	}
	if !strings.HasPrefix(positional[0], "@") {
		return cliArgs{}, &usageError{msgServerPrefix}
	}
	a.Server = strings.TrimPrefix(positional[0], "@")
	a.Name = positional[1]

	if err := config.Validate(&a); err != nil {
		return cliArgs{}, &usageError{describeValidation(err, a)}
	}
	return a, nil
}

// describeValidation turns the first failed struct tag into a user facing message.
func describeValidation(err error, a cliArgs) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch verrs[0].Field() {
	case "Timeout":
		return msgTimeout
	case "Retries":
		return msgRetries
	case "Port":
		return msgPort
	case "Server":
		return fmt.Sprintf(msgServerInvalid, a.Server)
	case "Name":
		return msgNameRequired
	default:
		return err.Error()
	}
}

// printOutcome writes the summary and one line per record, or NOTFOUND when
// the server returned no answers.
func printOutcome(w io.Writer, o domain.Outcome) {
	if o.NotFound() {
		fmt.Fprintln(w, "NOTFOUND")
		return
	}
	fmt.Fprintf(w, "Response received after %.3f seconds (%d retries)\n", o.Transaction.Elapsed.Seconds(), o.Transaction.Retries())
	fmt.Fprintf(w, "====== DNS Query Responses (%d records) ======\n", o.Response.RecordCount())
	for _, rr := range o.Response.Records {
		fmt.Fprintln(w, rrdata.Line(rr))
	}
}

// printError reports err on stdout in the ERROR: form.
func printError(w io.Writer, err error) {
	var rf *domain.ResolutionFailedError
	if errors.As(err, &rf) && rf.Reason == domain.ReasonMaxRetries {
		fmt.Fprintln(w, "ERROR: "+msgMaxRetries)
		return
	}
	fmt.Fprintf(w, "ERROR: %v\n", err)
}

// run executes one lookup and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdout, "ERROR: Configuration error: %v\n", err)
		return 1
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(stdout, "ERROR: Logging configuration error: %v\n", err)
		return 1
	}

	a, err := parseArgs(args, *cfg, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		printError(stdout, err)
		return 1
	}

	query, err := domain.NewQuery(a.Server, uint16(a.Port), a.Name, a.RRType(), time.Duration(a.Timeout)*time.Second, a.Retries)
	if err != nil {
		printError(stdout, err)
		return 1
	}

	logger := log.GetLogger()
	logger.Debug(map[string]any{
		"version": version,
		"env":     cfg.Env,
		"server":  query.Address(),
		"name":    query.Name,
		"type":    query.Type.String(),
		"timeout": query.Timeout.String(),
		"retries": query.MaxRetries,
	}, "Starting rr-dig")

	res, err := resolver.NewResolver(resolver.ResolverOptions{
		Codec:  wire.NewUDPCodec(logger),
		Logger: logger,
		Upstream: upstream.NewExchanger(upstream.Options{
			Logger: logger,
			OnRetry: func(retry, max int) {
				fmt.Fprintf(stdout, msgRetryingTimeout, retry, max)
			},
		}),
	})
	if err != nil {
		printError(stdout, err)
		return 1
	}

	outcome, err := res.Resolve(ctx, query)
	if err != nil {
		logger.Debug(map[string]any{"error": err.Error()}, "Resolution failed")
		printError(stdout, err)
		return 1
	}

	values := make([]string, 0, len(outcome.Response.Records))
	for _, rr := range outcome.Response.Records {
		values = append(values, rrdata.TypeLabel(rr.Type)+" "+rrdata.Value(rr))
	}
	log.Info(map[string]any{
		"id":       outcome.Transaction.ID,
		"attempts": outcome.Transaction.Attempts,
		"elapsed":  outcome.Transaction.Elapsed.String(),
		"records":  values,
	}, "Resolution complete")

	printOutcome(stdout, outcome)
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
