package progress

import (
	"strings"
	"testing"
)

func TestEmitterOneLinePerEvent(t *testing.T) {
	var buf strings.Builder
	e := New(&buf)

	e.Phase("init")
	e.Iteration(1, 30)
	e.ToolStart("read_file")
	e.ToolEnd("read_file", true, "const x = 1\nconst y = 2\n")
	e.Repair(1)
	e.Done(true, "finished\nwith newline")

	out := strings.TrimRight(buf.String(), "\n")
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6:\n%s", len(lines), out)
	}
	for i, line := range lines {
		if strings.Contains(line, "\r") {
			t.Errorf("line %d contains carriage return", i)
		}
	}
	if !strings.Contains(lines[3], "const x = 1 const y = 2") {
		t.Errorf("multi-line detail should be collapsed: %q", lines[3])
	}
}

func TestToolEndTruncatesLongDetail(t *testing.T) {
	var buf strings.Builder
	e := New(&buf)

	e.ToolEnd("run_build", false, strings.Repeat("x", 10000))
	line := strings.TrimRight(buf.String(), "\n")
	if len(line) > 400 {
		t.Errorf("result line too long: %d chars", len(line))
	}
}
