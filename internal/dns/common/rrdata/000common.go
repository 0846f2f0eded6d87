// Package rrdata renders decoded resource records as the tab separated lines
// printed by the command line client, one file per record type.
package rrdata

import (
	"strconv"
	"strings"

	"github.com/haukened/rr-dig/internal/dns/domain"
)

// unknownLabel is printed for record types the client does not decode.
const unknownLabel = "Unknown"

// joinFields assembles a listing line:
//
//	<label> <fields...> <ttl> <class> <type>
func joinFields(label string, fields []string, rr domain.ResourceRecord) string {
	parts := make([]string, 0, len(fields)+4)
	parts = append(parts, label)
	parts = append(parts, fields...)
	parts = append(parts, strconv.FormatUint(uint64(rr.TTL), 10), rr.Class.String(), TypeLabel(rr.Type))
	return strings.Join(parts, "\t")
}
