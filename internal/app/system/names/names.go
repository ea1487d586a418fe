// Package names validates user-supplied folder, image, and account names.
//
// Ids, not names, address records, but names are echoed in download headers
// and compared for sibling uniqueness, so a small set of structural
// characters is rejected outright.
package names

import (
	"strings"

	"github.com/jwagner/imagevault/internal/app/system/fault"
)

// Reserved characters that may not appear in any name.
const Reserved = "'\"`()/\\"

// MaxLength caps names well below any header or index limit.
const MaxLength = 255

// Validate checks a folder, image, or user name and returns its canonical
// form with surrounding whitespace removed. Callers persist and compare the
// returned value, so "Photos" and " Photos" are the same sibling name. On
// failure it returns a fault of kind InvalidArgument describing the first
// problem found.
func Validate(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fault.New(fault.InvalidArgument, "name is required")
	}
	if len(trimmed) > MaxLength {
		return "", fault.New(fault.InvalidArgument, "name exceeds %d characters", MaxLength)
	}
	if strings.ContainsAny(trimmed, Reserved) {
		return "", fault.New(fault.InvalidArgument, "name cannot contain any of: %s", spellOut(Reserved))
	}
	return trimmed, nil
}

// spellOut renders the reserved set as a comma-separated list for error
// messages.
func spellOut(chars string) string {
	parts := make([]string, 0, len(chars))
	for _, c := range chars {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ", ")
}
