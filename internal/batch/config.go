package batch

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/imgscan/internal/naming"
	"github.com/lehigh-university-libraries/imgscan/internal/providers"
)

var (
	// ErrEmptyPrefixDetection rejects skip detection for a prefix scheme with
	// no prefix. There is nothing in the filename to detect.
	ErrEmptyPrefixDetection = errors.New("skip-processed requires a non-empty prefix for this naming scheme")
	// ErrInvalidConcurrency rejects a negative worker count.
	ErrInvalidConcurrency = errors.New("concurrency must not be negative")
)

// RunConfig holds the settings for one run. It is passed by value and never
// changed after Validate.
type RunConfig struct {
	TargetDir        string
	Scheme           naming.Scheme
	Prefix           string
	SkipProcessed    bool
	DryRun           bool
	MaxKeywordLength int
	Concurrency      int
	Describe         providers.Config
}

// Validate reports configurations that cannot run.
func (c RunConfig) Validate() error {
	if !c.Scheme.Valid() {
		return fmt.Errorf("invalid naming scheme %q", c.Scheme.String())
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.Concurrency)
	}
	if c.MaxKeywordLength < 0 {
		return fmt.Errorf("max keyword length must not be negative: %d", c.MaxKeywordLength)
	}
	if err := naming.ValidatePrefix(c.Prefix); err != nil {
		return err
	}
	if c.DetectionEnabled() && c.Prefix == "" {
		return fmt.Errorf("%w (scheme %s)", ErrEmptyPrefixDetection, c.Scheme)
	}
	return nil
}

// DetectionEnabled reports whether already processed files will be skipped.
// desc_only names carry no marker, so detection is off for that scheme even
// when SkipProcessed is set.
func (c RunConfig) DetectionEnabled() bool {
	return c.SkipProcessed && c.Scheme.SupportsDetection()
}

func (c RunConfig) workers() int {
	if c.Concurrency < 1 {
		return 1
	}
	return c.Concurrency
}
