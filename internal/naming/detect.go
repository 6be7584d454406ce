package naming

import "strings"

// IsAlreadyProcessed reports whether stem carries the marker left by a
// previous run under scheme. It is always false for DescOnly and for an empty
// prefix, where no reliable marker exists.
func IsAlreadyProcessed(stem, prefix string, scheme Scheme) bool {
	if prefix == "" {
		return false
	}
	switch scheme {
	case OriginalPrefixDesc:
		return strings.Contains(stem, "_"+prefix+"_")
	case PrefixDesc:
		return strings.HasPrefix(stem, prefix+"_")
	default:
		return false
	}
}
