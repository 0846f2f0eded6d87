package rrdata

import "github.com/haukened/rr-dig/internal/dns/domain"

// aLabel replaces the type mnemonic in the first column of A records.
const aLabel = "IP"

// renderAData returns the dotted-decimal address of an A record.
func renderAData(d domain.AData) []string {
	return []string{d.Addr.String()}
}
