package normalize

import "strings"

// Email trims and lower-cases an address. It requires exactly one '@'
// with something on both sides.
func Email(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "", false
	}
	return email, true
}
