package monitor

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// maxLineBytes bounds the pending-line buffer. Lines longer than this
// are emitted in segments, cut on a rune boundary.
const maxLineBytes = 4096

// lineDecoder accumulates raw bytes and yields complete lines. Partial
// lines and partial UTF-8 sequences stay buffered across pushes.
type lineDecoder struct {
	buf []byte
}

// push appends p to the pending buffer and returns the complete lines
// it terminates, in order. Trailing carriage returns are stripped and
// invalid UTF-8 is replaced before a line is returned.
func (d *lineDecoder) push(p []byte) []string {
	d.buf = append(d.buf, p...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, sanitizeLine(d.buf[:i]))
		d.buf = append(d.buf[:0], d.buf[i+1:]...)
	}

	if len(d.buf) > maxLineBytes {
		cut := runeBoundary(d.buf, maxLineBytes)
		lines = append(lines, sanitizeLine(d.buf[:cut]))
		d.buf = append(d.buf[:0], d.buf[cut:]...)
	}
	return lines
}

// pending returns the number of buffered bytes awaiting a newline.
func (d *lineDecoder) pending() int {
	return len(d.buf)
}

// sanitizeLine strips a trailing carriage return and replaces invalid
// UTF-8 with the replacement character.
func sanitizeLine(raw []byte) string {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	return strings.ToValidUTF8(string(raw), "�")
}

// runeBoundary returns a cut point at or just below limit that does
// not split a UTF-8 sequence.
func runeBoundary(b []byte, limit int) int {
	cut := limit
	for cut > 0 && limit-cut < utf8.UTFMax && !utf8.RuneStart(b[cut]) {
		cut--
	}
	if !utf8.RuneStart(b[cut]) {
		return limit
	}
	return cut
}

// classify derives a severity from the line content. ESP-IDF style
// single-letter prefixes and plain ERROR/WARN markers are recognized.
func classify(line string) Severity {
	switch {
	case strings.Contains(line, "ERROR") || strings.HasPrefix(line, "E ("):
		return SeverityError
	case strings.Contains(line, "WARN") || strings.HasPrefix(line, "W ("):
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
