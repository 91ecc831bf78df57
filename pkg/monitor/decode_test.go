package monitor

import (
	"strings"
	"testing"
)

func TestLineDecoderSplitsLines(t *testing.T) {
	var d lineDecoder

	lines := d.push([]byte("I (1) boot: start\r\nI (2) boot: load\npartial"))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), lines)
	}
	if lines[0] != "I (1) boot: start" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "I (2) boot: load" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if d.pending() == 0 {
		t.Error("partial line not buffered")
	}

	lines = d.push([]byte(" data\n"))
	if len(lines) != 1 || lines[0] != "partial data" {
		t.Errorf("continuation = %q, want [partial data]", lines)
	}
	if d.pending() != 0 {
		t.Errorf("pending = %d after complete line", d.pending())
	}
}

func TestLineDecoderCarriesPartialRune(t *testing.T) {
	var d lineDecoder

	// "héllo\n" with the two-byte é split across reads.
	raw := []byte("h\xc3\xa9llo\n")
	if lines := d.push(raw[:2]); len(lines) != 0 {
		t.Fatalf("unexpected lines from partial rune: %q", lines)
	}
	lines := d.push(raw[2:])
	if len(lines) != 1 || lines[0] != "héllo" {
		t.Errorf("lines = %q, want [héllo]", lines)
	}
}

func TestLineDecoderReplacesInvalidUTF8(t *testing.T) {
	var d lineDecoder

	lines := d.push([]byte{0xFF, 0xFE, 'o', 'k', '\n'})
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0] != "�ok" {
		t.Errorf("line = %q, want replacement char followed by ok", lines[0])
	}
}

func TestLineDecoderBoundsLongLines(t *testing.T) {
	var d lineDecoder

	// No newline in sight: the decoder flushes a bounded segment but
	// never cuts through a multi-byte sequence.
	raw := strings.Repeat("a", maxLineBytes-1) + "éx"
	lines := d.push([]byte(raw))
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if len(lines[0]) != maxLineBytes-1 {
		t.Errorf("segment length = %d, want %d", len(lines[0]), maxLineBytes-1)
	}
	if d.pending() != 3 {
		t.Errorf("pending = %d, want 3 (é plus x)", d.pending())
	}

	lines = d.push([]byte("\n"))
	if len(lines) != 1 || lines[0] != "éx" {
		t.Errorf("tail = %q, want [éx]", lines)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want Severity
	}{
		{"E (90) rtc: brownout detected", SeverityError},
		{"ERROR: mount failed", SeverityError},
		{"flash ERROR at 0x1000", SeverityError},
		{"W (12) wifi: retry", SeverityWarning},
		{"WARN (90) rtc: no backup battery", SeverityWarning},
		{"WARNING: low voltage", SeverityWarning},
		{"I (112) app: firmware ready", SeverityInfo},
		{"plain boot text", SeverityInfo},
		{"", SeverityInfo},
	}
	for _, tt := range tests {
		if got := classify(tt.line); got != tt.want {
			t.Errorf("classify(%q) = %s, want %s", tt.line, got, tt.want)
		}
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{SeverityInfo, "INFO"},
		{SeverityWarning, "WARNING"},
		{SeverityError, "ERROR"},
		{Severity(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.sev.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.sev, got, tt.want)
		}
	}
}
