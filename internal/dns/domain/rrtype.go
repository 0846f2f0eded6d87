package domain

import (
	"fmt"
)

// RRType represents a DNS resource record type (e.g. A, NS, MX).
// See IANA DNS Parameters for assigned codes.
type RRType uint16

// DNS Resource Record Type constants.
// Only A, NS, CNAME and MX can be queried and decoded; the rest exist so that
// records of other types in an answer section still print a mnemonic.
const (
	RRTypeA     RRType = 1  // A - IPv4 address
	RRTypeNS    RRType = 2  // NS - Name server
	RRTypeCNAME RRType = 5  // CNAME - Canonical name
	RRTypeSOA   RRType = 6  // SOA - Start of authority
	RRTypePTR   RRType = 12 // PTR - Pointer
	RRTypeMX    RRType = 15 // MX - Mail exchange
	RRTypeTXT   RRType = 16 // TXT - Text
	RRTypeAAAA  RRType = 28 // AAAA - IPv6 address
	RRTypeSRV   RRType = 33 // SRV - Service
	RRTypeOPT   RRType = 41 // OPT - EDNS option
)

// IsQueryable reports whether the client can build a query for this type
// and decode its answers.
func (t RRType) IsQueryable() bool {
	switch t {
	case RRTypeA, RRTypeNS, RRTypeCNAME, RRTypeMX:
		return true
	default:
		return false
	}
}

// String returns the textual representation of the RRType.
// For unknown types, it returns "UNKNOWN(<value>)".
func (t RRType) String() string {
	switch t {
	case RRTypeA:
		return "A"
	case RRTypeNS:
		return "NS"
	case RRTypeCNAME:
		return "CNAME"
	case RRTypeSOA:
		return "SOA"
	case RRTypePTR:
		return "PTR"
	case RRTypeMX:
		return "MX"
	case RRTypeTXT:
		return "TXT"
	case RRTypeAAAA:
		return "AAAA"
	case RRTypeSRV:
		return "SRV"
	case RRTypeOPT:
		return "OPT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", t)
	}
}
