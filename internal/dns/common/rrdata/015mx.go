package rrdata

import (
	"strconv"

	"github.com/haukened/rr-dig/internal/dns/domain"
)

// renderMXData returns the exchange followed by its preference.
func renderMXData(d domain.MXData) []string {
	return []string{d.Exchange, strconv.FormatUint(uint64(d.Preference), 10)}
}
