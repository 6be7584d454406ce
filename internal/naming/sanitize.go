package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxKeywordLength caps keyword length when no limit is configured.
const DefaultMaxKeywordLength = 100

// ErrEmptyKeyword is returned when a description contains nothing usable.
var ErrEmptyKeyword = errors.New("description produced an empty keyword")

// EmptyKeywordError carries the description that could not be sanitized.
type EmptyKeywordError struct {
	Raw string
}

func (e *EmptyKeywordError) Error() string {
	return fmt.Sprintf("%s: %q", ErrEmptyKeyword.Error(), e.Raw)
}

func (e *EmptyKeywordError) Unwrap() error {
	return ErrEmptyKeyword
}

// Keyword is a filesystem-safe token derived from a model description.
type Keyword struct {
	Raw  string
	Text string
}

func (k Keyword) String() string {
	return k.Text
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Sanitize turns a raw description into a keyword containing only
// [a-z0-9_], at most maxLength bytes long. Runs of other characters collapse
// into a single underscore.
func Sanitize(raw string, maxLength int) (Keyword, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxKeywordLength
	}

	text := strings.ToLower(foldDiacritics(raw))
	text = nonAlphanumeric.ReplaceAllString(text, "_")
	text = strings.Trim(text, "_")
	text = dropLeadingArticle(text)
	if len(text) > maxLength {
		text = strings.TrimRight(text[:maxLength], "_")
	}
	if text == "" {
		return Keyword{Raw: raw}, &EmptyKeywordError{Raw: raw}
	}
	return Keyword{Raw: raw, Text: text}, nil
}

var leadingArticles = []string{"a_", "an_", "the_"}

// dropLeadingArticle removes one leading English article, which vision models
// tend to open with ("A red sports car"). A lone article is kept.
func dropLeadingArticle(text string) string {
	for _, article := range leadingArticles {
		if rest, ok := strings.CutPrefix(text, article); ok && rest != "" {
			return rest
		}
	}
	return text
}

// foldDiacritics maps accented letters onto their base letter ("café" -> "cafe").
// Transformers are stateful, so a fresh chain is built per call.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
