package rrdata

import (
	"strings"

	"github.com/haukened/rr-dig/internal/dns/domain"
)

// fields returns the value columns of rr based on its data variant.
func fields(rr domain.ResourceRecord) []string {
	switch d := rr.Data.(type) {
	case domain.AData: // 1
		return renderAData(d)
	case domain.NSData: // 2
		return renderNSData(d)
	case domain.CNAMEData: // 5
		return renderCNAMEData(d)
	case domain.MXData: // 15
		return renderMXData(d)
	case domain.OpaqueData:
		return renderOpaqueData(d)
	default:
		return []string{""}
	}
}

// TypeLabel returns the mnemonic printed for t. Only decoded types keep
// their name; everything else prints as Unknown.
func TypeLabel(t domain.RRType) string {
	if !t.IsQueryable() {
		return unknownLabel
	}
	return t.String()
}

// Value renders the data of rr. MX values are the exchange and preference
// separated by a tab.
func Value(rr domain.ResourceRecord) string {
	return strings.Join(fields(rr), "\t")
}

// Line renders rr as one listing line, for example:
//
//	IP	93.184.216.34	300	IN	A
//	MX	mail.example.com	10	300	IN	MX
func Line(rr domain.ResourceRecord) string {
	label := TypeLabel(rr.Type)
	if rr.Type == domain.RRTypeA {
		label = aLabel
	}
	return joinFields(label, fields(rr), rr)
}
