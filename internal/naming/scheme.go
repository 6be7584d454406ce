package naming

import (
	"fmt"
	"strings"
)

// Scheme controls how the original name, prefix and keyword combine into a
// new filename.
type Scheme int

const (
	// OriginalPrefixDesc renders {original}_{prefix}_{keyword}.
	OriginalPrefixDesc Scheme = iota + 1
	// PrefixDesc renders {prefix}_{keyword}.
	PrefixDesc
	// DescOnly renders {keyword}. Files renamed this way carry no marker, so
	// they cannot be recognised as processed on a later run.
	DescOnly
)

var schemeNames = map[Scheme]string{
	OriginalPrefixDesc: "original_prefix_desc",
	PrefixDesc:         "prefix_desc",
	DescOnly:           "desc_only",
}

// Schemes lists every valid scheme in display order.
func Schemes() []Scheme {
	return []Scheme{OriginalPrefixDesc, PrefixDesc, DescOnly}
}

// ParseScheme converts a scheme name into a Scheme.
func ParseScheme(value string) (Scheme, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, s := range Schemes() {
		if schemeNames[s] == value {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown naming scheme %q (supported: %s)", value, strings.Join(SchemeNames(), ", "))
}

// SchemeNames returns the names of all valid schemes.
func SchemeNames() []string {
	names := make([]string, 0, len(schemeNames))
	for _, s := range Schemes() {
		names = append(names, schemeNames[s])
	}
	return names
}

func (s Scheme) String() string {
	if name, ok := schemeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// Valid reports whether s is one of the defined schemes.
func (s Scheme) Valid() bool {
	_, ok := schemeNames[s]
	return ok
}

// UsesPrefix reports whether the scheme renders the prefix.
func (s Scheme) UsesPrefix() bool {
	return s == OriginalPrefixDesc || s == PrefixDesc
}

// SupportsDetection reports whether already-processed files can be recognised
// from their name under this scheme.
func (s Scheme) SupportsDetection() bool {
	return s.UsesPrefix()
}

// Set implements pflag.Value.
func (s *Scheme) Set(value string) error {
	parsed, err := ParseScheme(value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Type implements pflag.Value.
func (s *Scheme) Type() string {
	return "scheme"
}

// MarshalText lets the scheme round-trip through TOML and YAML.
func (s Scheme) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid naming scheme %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a scheme name.
func (s *Scheme) UnmarshalText(text []byte) error {
	return s.Set(string(text))
}
