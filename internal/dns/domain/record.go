package domain

import (
	"fmt"
	"net/netip"
)

// RData is the type-specific payload of a resource record. The concrete
// variants are AData, NSData, CNAMEData, MXData and OpaqueData.
type RData interface {
	isRData()
}

// AData is the payload of an A record.
type AData struct {
	Addr netip.Addr
}

// NSData is the payload of an NS record.
type NSData struct {
	Host string
}

// CNAMEData is the payload of a CNAME record.
type CNAMEData struct {
	Target string
}

// MXData is the payload of an MX record.
type MXData struct {
	Preference uint16
	Exchange   string
}

// OpaqueData holds the raw rdata of a record type the client does not decode.
type OpaqueData struct {
	Raw []byte
}

func (AData) isRData()      {}
func (NSData) isRData()     {}
func (CNAMEData) isRData()  {}
func (MXData) isRData()     {}
func (OpaqueData) isRData() {}

// ResourceRecord is a decoded answer entry.
type ResourceRecord struct {
	Name  string
	Type  RRType
	Class RRClass
	TTL   uint32
	Data  RData
}

// NewResourceRecord constructs a ResourceRecord and validates that its payload
// matches its type.
func NewResourceRecord(name string, rrtype RRType, class RRClass, ttl uint32, data RData) (ResourceRecord, error) {
	rr := ResourceRecord{
		Name:  name,
		Type:  rrtype,
		Class: class,
		TTL:   ttl,
		Data:  data,
	}
	if err := rr.Validate(); err != nil {
		return ResourceRecord{}, err
	}
	return rr, nil
}

// Validate checks that the payload variant agrees with the record type.
// Types the client does not decode must carry OpaqueData.
func (rr ResourceRecord) Validate() error {
	if rr.Data == nil {
		return fmt.Errorf("record %q of type %s has no data", rr.Name, rr.Type)
	}
	ok := false
	switch d := rr.Data.(type) {
	case AData:
		ok = rr.Type == RRTypeA && d.Addr.Is4()
	case NSData:
		ok = rr.Type == RRTypeNS
	case CNAMEData:
		ok = rr.Type == RRTypeCNAME
	case MXData:
		ok = rr.Type == RRTypeMX
	case OpaqueData:
		ok = !rr.Type.IsQueryable()
	}
	if !ok {
		return fmt.Errorf("record %q: data %T does not match type %s", rr.Name, rr.Data, rr.Type)
	}
	return nil
}
