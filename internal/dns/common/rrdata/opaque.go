package rrdata

import (
	"encoding/hex"

	"github.com/haukened/rr-dig/internal/dns/domain"
)

// renderOpaqueData returns the raw rdata as lowercase hex.
func renderOpaqueData(d domain.OpaqueData) []string {
	return []string{hex.EncodeToString(d.Raw)}
}
