// Package identifiers recognises the book identifiers found in external
// catalog records.
package identifiers

import (
	"strings"
	"unicode"
)

// Type is the kind of an identifier.
type Type string

const (
	TypeISBN10  Type = "isbn_10"
	TypeISBN13  Type = "isbn_13"
	TypeUnknown Type = ""
)

// Identifier is an identifier as declared by an external record, e.g. a
// Google Books industryIdentifiers entry.
type Identifier struct {
	Scheme string
	Value  string
}

// SchemeType maps a declared scheme ("ISBN_13", "isbn-10", "ISBN") to a type.
// A bare "ISBN" scheme is resolved from the value's length.
func SchemeType(scheme, value string) Type {
	switch strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToUpper(scheme)) {
	case "ISBN13":
		return TypeISBN13
	case "ISBN10":
		return TypeISBN10
	case "ISBN":
		return Classify(value)
	}
	return TypeUnknown
}

// Classify detects an ISBN from its value alone. Values with a bad checksum
// are unknown.
func Classify(value string) Type {
	normalized := NormalizeISBN(value)
	switch {
	case len(normalized) == 13 && ValidateISBN13(normalized):
		return TypeISBN13
	case len(normalized) == 10 && ValidateISBN10(normalized):
		return TypeISBN10
	}
	return TypeUnknown
}

// PreferredISBN picks the ISBN to catalog a record under: the first ISBN-13,
// else the first ISBN-10. Identifiers whose checksum verifies win over ones
// that don't, so a mistyped entry doesn't shadow a good one.
func PreferredISBN(ids []Identifier) string {
	var best string
	bestRank := 0
	for _, id := range ids {
		value := strings.TrimSpace(id.Value)
		if value == "" {
			continue
		}
		rank := 0
		switch SchemeType(id.Scheme, value) {
		case TypeISBN13:
			rank = 2
		case TypeISBN10:
			rank = 1
		default:
			continue
		}
		if Classify(value) != TypeUnknown {
			rank += 2
		}
		if rank > bestRank {
			best, bestRank = value, rank
		}
	}
	return best
}

// NormalizeISBN drops an "ISBN" prefix and everything but digits and X.
func NormalizeISBN(value string) string {
	value = strings.TrimSpace(strings.ToUpper(value))
	value = strings.TrimPrefix(value, "ISBN:")
	value = strings.TrimPrefix(value, "ISBN")

	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) || r == 'X' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateISBN10 checks the mod 11 checksum (weights 10 down to 1, X = 10 in
// the last position only).
func ValidateISBN10(isbn string) bool {
	if len(isbn) != 10 {
		return false
	}
	sum := 0
	for i, r := range isbn {
		var digit int
		switch {
		case r == 'X' && i == 9:
			digit = 10
		case unicode.IsDigit(r):
			digit = int(r - '0')
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

// ValidateISBN13 checks the mod 10 checksum with alternating weights 1 and 3.
func ValidateISBN13(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	sum := 0
	for i, r := range isbn {
		if !unicode.IsDigit(r) {
			return false
		}
		weight := 1
		if i%2 == 1 {
			weight = 3
		}
		sum += int(r-'0') * weight
	}
	return sum%10 == 0
}
