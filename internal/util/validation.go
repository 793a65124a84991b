package util

import (
	"regexp"
)

var codeRegex = regexp.MustCompile(`^[A-Za-z0-9]{6,24}$`)

// IsValidCode reports whether s looks like a redemption code. The feed
// occasionally carries malformed entries; those are dropped before any
// remote call.
func IsValidCode(s string) bool {
	return codeRegex.MatchString(s)
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}
