package attachments

import "strings"

// ValidateID checks that an attachment identifier is safe to use as a
// filename stem. Identifiers must be non-empty and contain only ASCII
// letters, digits, hyphens, and underscores. Dots are deliberately
// forbidden: garbage collection derives the identifier from the filename
// prefix before the first dot, and allowing dots in identifiers would make
// that derivation ambiguous.
func ValidateID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	for _, r := range id {
		if !isIDRune(r) {
			return ErrInvalidID
		}
	}
	return nil
}

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

// NormalizeExtension canonicalizes a user-supplied file extension into a
// filename suffix. Surrounding whitespace and any leading or trailing dots
// are stripped; a non-empty remainder is returned with a single leading dot.
// Case is preserved and the character set is not validated - the extension
// only ever follows a validated identifier in the managed directory.
func NormalizeExtension(extension string) string {
	raw := strings.Trim(strings.TrimSpace(extension), ".")
	if raw == "" {
		return ""
	}
	return "." + raw
}
