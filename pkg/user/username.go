package user

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"recipebook-backend/domain"
)

var usernamePattern = regexp.MustCompile(`[^\w.@+-]`)

// ValidateUsername rejects the reserved profile path segment and any
// username containing characters outside [\w.@+-]. Every offending
// character is listed in the error, not just the first one found.
func ValidateUsername(username string) error {
	if username == domain.ReservedProfilePath {
		return fmt.Errorf("%w: %q is a reserved path segment", domain.ErrInvalidUsername, username)
	}

	matches := usernamePattern.FindAllString(username, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	invalid := make([]string, 0, len(matches))
	for _, ch := range matches {
		if !seen[ch] {
			seen[ch] = true
			invalid = append(invalid, ch)
		}
	}
	sort.Strings(invalid)

	return fmt.Errorf("%w: forbidden characters %q", domain.ErrInvalidUsername, strings.Join(invalid, ""))
}
