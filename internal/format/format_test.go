package format

import (
	"strings"
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 100)

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under budget", "short", 10, "short"},
		{"exact budget", "12345", 5, "12345"},
		{"over budget", long, 10, long[:10] + TruncationNotice},
		{"zero max passes through", long, 0, long},
		{"negative max passes through", long, -1, long},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncated(t *testing.T) {
	if Truncated("abc", 5) {
		t.Error("short string reported as truncated")
	}
	if !Truncated("abcdef", 5) {
		t.Error("long string not reported as truncated")
	}
	if Truncated("abcdef", 0) {
		t.Error("non-positive max must never report truncation")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{340 * time.Millisecond, "340ms"},
		{1200 * time.Millisecond, "1.2s"},
		{2*time.Minute + 5*time.Second, "2m5s"},
	}
	for _, tt := range tests {
		if got := Duration(tt.d); got != tt.want {
			t.Errorf("Duration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
