package naming

import "strings"

// Resolve computes the candidate filename for a file. Empty components are
// omitted instead of leaving stray underscores, and ext (without the dot) is
// appended verbatim.
func Resolve(stem, ext, prefix string, kw Keyword, scheme Scheme) string {
	var parts []string
	switch scheme {
	case OriginalPrefixDesc:
		parts = []string{stem, prefix, kw.Text}
	case PrefixDesc:
		parts = []string{prefix, kw.Text}
	default:
		parts = []string{kw.Text}
	}

	newStem := joinNonEmpty(parts, "_")
	if ext == "" {
		return newStem
	}
	return newStem + "." + ext
}

func joinNonEmpty(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
