// Package emailaddr normalizes and validates email addresses and derives the
// domain attributes the checks work on.
package emailaddr

import (
	"strings"

	"github.com/badoux/checkmail"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest address accepted
const MaxLength = 254

// Normalize trims, NFC-normalizes and lowercases an address
func Normalize(raw string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(raw)))
}

// Split returns the local part and domain of an address. ok is false unless
// there is exactly one @ with text on both sides.
func Split(email string) (local, domain string, ok bool) {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Domain returns the part after the @ in its ASCII form, or an empty
// string. Both spellings of an internationalized domain map to the same
// value.
func Domain(email string) string {
	_, domain, ok := Split(email)
	if !ok {
		return ""
	}
	if ascii, err := ToASCII(domain); err == nil {
		return ascii
	}
	return domain
}

// ToASCII converts an internationalized domain to its punycode form
func ToASCII(domain string) (string, error) {
	return idna.Lookup.ToASCII(domain)
}

// ToUnicode converts a punycode domain or label back to its Unicode form.
// Input that does not decode is returned unchanged.
func ToUnicode(domain string) string {
	if u, err := idna.Lookup.ToUnicode(domain); err == nil {
		return u
	}
	return domain
}

// IsValidSyntax reports whether the address is well formed and short enough.
// Internationalized domains are checked in their ASCII form.
func IsValidSyntax(email string) bool {
	if email == "" || len(email) > MaxLength {
		return false
	}
	local, domain, ok := Split(email)
	if !ok {
		return false
	}
	asciiDomain, err := ToASCII(domain)
	if err != nil {
		return false
	}
	candidate := local + "@" + asciiDomain
	if len(candidate) > MaxLength {
		return false
	}
	return checkmail.ValidateFormat(candidate) == nil
}

// SecondLevelLabel returns the registrable label of a domain, e.g. "example"
// for both "example.com" and "mail.example.co.uk". Punycode labels are
// decoded, so "xn--bcher-kva.de" yields "bücher".
func SecondLevelLabel(domain string) string {
	return ToUnicode(registrableLabel(domain))
}

func registrableLabel(domain string) string {
	domain = strings.TrimSuffix(domain, ".")
	if registrable, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
		domain = registrable
	}
	if i := strings.IndexByte(domain, '.'); i >= 0 {
		return domain[:i]
	}
	return domain
}
