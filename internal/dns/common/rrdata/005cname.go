package rrdata

import "github.com/haukened/rr-dig/internal/dns/domain"

func renderCNAMEData(d domain.CNAMEData) []string {
	return []string{d.Target}
}
