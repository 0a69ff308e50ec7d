package protocol

import (
	"strings"
	"unicode"
)

// CanonicalAddress returns the canonical form of a MailerId address:
// all whitespace removed and lowercased.
func CanonicalAddress(address string) string {
	return strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, address))
}

// AddressDomain returns the domain part of the canonical address.
// An address without '@' is a domain itself.
func AddressDomain(address string) string {
	address = CanonicalAddress(address)
	if i := strings.LastIndexByte(address, '@'); i >= 0 {
		return address[i+1:]
	}
	return address
}
