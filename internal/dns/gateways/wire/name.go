package wire

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/haukened/rr-dig/internal/dns/domain"
)

const (
	maxLabelLength = 63
	maxNameLength  = 255

	labelTypeMask    = 0xC0
	labelTypePointer = 0xC0
	labelTypeNormal  = 0x00
	pointerOffset    = 0x3FFF
)

const (
	errEmptyName       = "name must not be empty"
	errEmptyLabel      = "empty label in %q"
	errLabelTooLong    = "label too long (%d > 63): %q"
	errNameTooLong     = "encoded name too long (%d > 255): %q"
	errNameOutOfBounds = "name at offset %d runs past end of message"
	errLabelOutOfBound = "label at offset %d runs past end of message"
	errPointerTrunc    = "compression pointer at offset %d is truncated"
	errPointerForward  = "compression pointer at offset %d points forward to %d"
	errPointerLoop     = "compression pointer at offset %d revisits offset %d"
	errReservedLabel   = "reserved label type %#02x at offset %d"
	errDecodedTooLong  = "decoded name exceeds 255 bytes at offset %d"
)

// malformed wraps domain.ErrMalformedMessage with a formatted reason.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedMessage, fmt.Sprintf(format, args...))
}

// EncodeName encodes a dotted domain name into DNS wire format without
// compression: a length byte and the label bytes for each label, terminated
// by a zero byte. A single trailing dot is accepted.
//
//	"www.example.com" -> [3]www[7]example[3]com[0]
func EncodeName(name string) ([]byte, error) {
	trimmed := strings.TrimSuffix(name, ".")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidName, errEmptyName)
	}

	out := make([]byte, 0, len(trimmed)+2)
	for _, label := range strings.Split(trimmed, ".") {
		if len(label) == 0 {
			return nil, fmt.Errorf("%w: "+errEmptyLabel, domain.ErrInvalidName, name)
		}
		if len(label) > maxLabelLength {
			return nil, fmt.Errorf("%w: "+errLabelTooLong, domain.ErrInvalidName, len(label), label)
		}
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	out = append(out, 0)

	if len(out) > maxNameLength {
		return nil, fmt.Errorf("%w: "+errNameTooLong, domain.ErrInvalidName, len(out), name)
	}
	return out, nil
}

// DecodeName reads the name that starts at offset in msg, following
// compression pointers, and returns it with the offset of the first byte
// after the name as it appears at offset. Once a pointer is taken the
// returned offset is fixed two bytes past that pointer; the labels reached
// through it only contribute text.
//
// A pointer must target an offset strictly before its own position and no
// target may be visited twice, so decoding terminates on any input.
func DecodeName(msg []byte, offset int) (string, int, error) {
	var (
		labels  []string
		visited map[int]struct{}
		cursor  = offset
		next    = -1
		size    = 1 // terminating zero byte
	)

	for {
		if cursor < 0 || cursor >= len(msg) {
			return "", 0, malformed(errNameOutOfBounds, cursor)
		}
		b := msg[cursor]

		switch b & labelTypeMask {
		case labelTypeNormal:
			if b == 0 {
				if next < 0 {
					next = cursor + 1
				}
				return strings.Join(labels, "."), next, nil
			}
			n := int(b)
			if cursor+1+n > len(msg) {
				return "", 0, malformed(errLabelOutOfBound, cursor)
			}
			size += n + 1
			if size > maxNameLength {
				return "", 0, malformed(errDecodedTooLong, offset)
			}
			labels = append(labels, string(msg[cursor+1:cursor+1+n]))
			cursor += 1 + n

		case labelTypePointer:
			if cursor+1 >= len(msg) {
				return "", 0, malformed(errPointerTrunc, cursor)
			}
			target := int(binary.BigEndian.Uint16(msg[cursor:cursor+2]) & pointerOffset)
			if target >= cursor {
				return "", 0, malformed(errPointerForward, cursor, target)
			}
			if visited == nil {
				visited = make(map[int]struct{}, 4)
			}
			if _, seen := visited[target]; seen {
				return "", 0, malformed(errPointerLoop, cursor, target)
			}
			visited[target] = struct{}{}
			if next < 0 {
				next = cursor + 2
			}
			cursor = target

		default:
			return "", 0, malformed(errReservedLabel, b&labelTypeMask, cursor)
		}
	}
}

// SkipName returns the offset just past the name at offset without decoding
// it: past the terminating zero byte, or past the first compression pointer,
// whichever comes first. Pointer targets are not inspected.
func SkipName(msg []byte, offset int) (int, error) {
	for {
		if offset < 0 || offset >= len(msg) {
			return 0, malformed(errNameOutOfBounds, offset)
		}
		b := msg[offset]
		switch b & labelTypeMask {
		case labelTypeNormal:
			if b == 0 {
				return offset + 1, nil
			}
			offset += 1 + int(b)
		case labelTypePointer:
			if offset+1 >= len(msg) {
				return 0, malformed(errPointerTrunc, offset)
			}
			return offset + 2, nil
		default:
			return 0, malformed(errReservedLabel, b&labelTypeMask, offset)
		}
	}
}
