package utils

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// CanonicalDNSName returns a DNS name in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot, the wire encoder terminates every name itself.
func CanonicalDNSName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	// remove all trailing dots
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// ASCIIName returns the canonical form of name suitable for the wire.
// Internationalised names are converted to their punycode (xn--) form.
// Pure ASCII names skip IDNA processing so that names such as
// "_dmarc.example.com" survive untouched.
func ASCIIName(name string) (string, error) {
	name = CanonicalDNSName(name)
	if name == "" || isASCII(name) {
		return name, nil
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", err
	}
	return CanonicalDNSName(ascii), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
