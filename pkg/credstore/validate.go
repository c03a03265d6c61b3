package credstore

import "strings"

var reservedNames = map[string]bool{
	"host":      true,
	"server":    true,
	"admin":     true,
	"moderator": true,
}

// ValidateUsername enforces length, character set, and the reserved-word
// list. It returns ok=true, or ok=false with a one-line human-readable
// reason suitable for sending straight back to the client.
func ValidateUsername(s string) (ok bool, reason string) {
	if len(s) < 3 || len(s) > 16 {
		return false, "Username must be 3-16 characters."
	}
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		if !isAlnum {
			return false, "Username may only contain letters, digits, and underscores."
		}
	}
	if reservedNames[strings.ToLower(s)] {
		return false, "That username is reserved."
	}
	return true, ""
}
