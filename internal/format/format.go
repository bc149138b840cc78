// Package format holds small output-shaping helpers shared by the tools and
// the loop. Truncation here is a correctness requirement, not cosmetics: every
// string fed back into model-facing context must be bounded or history growth
// eventually breaks the endpoint.
package format

import (
	"fmt"
	"time"
)

// Default per-field budgets for model-facing content.
const (
	// MaxToolOutputChars caps command stdout/stderr placed into history.
	MaxToolOutputChars = 8000
	// MaxFileContentChars caps file contents returned by read operations.
	MaxFileContentChars = 16000
	// MaxErrorChars caps error strings fed back to the model.
	MaxErrorChars = 2000
)

// TruncationNotice is appended to any truncated field so the model knows the
// content is incomplete.
const TruncationNotice = "\n... [output truncated]"

// Truncate bounds s to max characters, appending TruncationNotice when content
// was dropped. A non-positive max returns s unchanged.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + TruncationNotice
}

// Truncated reports whether Truncate(s, max) would drop content.
func Truncated(s string, max int) bool {
	return max > 0 && len(s) > max
}

// Duration renders a duration compactly for status lines (1.2s, 340ms, 2m5s).
func Duration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("%dm%ds", m, s)
	}
}
