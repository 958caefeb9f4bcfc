package catalog

import "strings"

// Slugify derives a URL slug from a display name: lowercase ASCII
// alphanumerics separated by single hyphens. Quotes are dropped without
// splitting words.
func Slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	prevWasSep := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevWasSep = false
		case r == '\'' || r == '"' || r == '‘' || r == '’' || r == '“' || r == '”':
			continue
		default:
			if !prevWasSep && b.Len() > 0 {
				b.WriteRune('-')
			}
			prevWasSep = true
		}
	}
	result := strings.TrimRight(b.String(), "-")
	if len(result) > 63 {
		result = strings.TrimRight(result[:63], "-")
	}
	if result == "" {
		return "item"
	}
	return result
}
