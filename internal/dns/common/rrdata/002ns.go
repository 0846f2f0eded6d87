package rrdata

import "github.com/haukened/rr-dig/internal/dns/domain"

func renderNSData(d domain.NSData) []string {
	return []string{d.Host}
}
