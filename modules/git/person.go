package git

import "strings"

// ParsePerson splits a "Name <email>" identity line. Either part may
// come back empty; git itself does not guarantee well-formed identities.
func ParsePerson(s string) (name, email string) {
	start := strings.LastIndexByte(s, '<')
	end := strings.LastIndexByte(s, '>')
	if start == -1 || end == -1 || end < start {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:start]), s[start+1 : end]
}

// FormatPerson renders an identity the way git expects it.
func FormatPerson(name, email string) string {
	return name + " <" + email + ">"
}
