// Package stringsx collects small string helpers shared by the loaders, the
// rpc layer and configuration.
package stringsx

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// HasPrefix reports whether s starts with any of prefixes.
func HasPrefix(s string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// TrimFirstPrefix removes the first non-empty prefix of s found in prefixes.
func TrimFirstPrefix(s string, prefixes ...string) string {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(s, prefix) {
			return s[len(prefix):]
		}
	}
	return s
}

// OneOf reports whether s equals one of ss.
func OneOf(s string, ss ...string) bool {
	for _, v := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// LowerFirstChar lowercases the first rune of s: "PlaceOrder" -> "placeOrder".
func LowerFirstChar(s string) string {
	return mapFirstRune(s, unicode.ToLower)
}

// UpperFirstChar uppercases the first rune of s: "placeOrder" -> "PlaceOrder".
func UpperFirstChar(s string) string {
	return mapFirstRune(s, unicode.ToUpper)
}

func mapFirstRune(s string, fn func(rune) rune) string {
	if s == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(s)
	return string(fn(r)) + s[size:]
}
