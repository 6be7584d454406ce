package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidPrefix rejects a prefix that would not stay inside a single
// filename component.
var ErrInvalidPrefix = errors.New("prefix must be usable inside a filename")

// ValidatePrefix reports prefixes that contain a path separator, a NUL byte
// or a relative path element. An empty prefix is valid.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if strings.ContainsAny(prefix, `/\`+"\x00") || prefix == "." || prefix == ".." || filepath.Base(prefix) != prefix {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	return nil
}
