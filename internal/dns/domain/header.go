package domain

// HeaderSize is the fixed length of a DNS message header in bytes.
const HeaderSize = 12

// Header flag bits (RFC 1035 §4.1.1).
const (
	FlagQR uint16 = 1 << 15
	FlagAA uint16 = 1 << 10
	FlagTC uint16 = 1 << 9
	FlagRD uint16 = 1 << 8
	FlagRA uint16 = 1 << 7
)

// FlagsStandardQuery is a standard query with recursion desired.
const FlagsStandardQuery = FlagRD

// Header is the 12-byte DNS message header.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// QR reports whether the message is a response.
func (h Header) QR() bool { return h.Flags&FlagQR != 0 }

// Opcode returns the 4-bit operation code.
func (h Header) Opcode() uint8 { return uint8(h.Flags>>11) & 0x0F }

// AA reports whether the answer is authoritative.
func (h Header) AA() bool { return h.Flags&FlagAA != 0 }

// TC reports whether the message was truncated.
func (h Header) TC() bool { return h.Flags&FlagTC != 0 }

// RD reports whether recursion was desired.
func (h Header) RD() bool { return h.Flags&FlagRD != 0 }

// RA reports whether the server offers recursion.
func (h Header) RA() bool { return h.Flags&FlagRA != 0 }

// RCode returns the response code carried in the low four flag bits.
func (h Header) RCode() RCode {
	//gosec:disable G115 -- masked to four bits
	return RCode(h.Flags & 0x000F)
}
