// Package ingest reads the loosely formatted text files that registrars export:
// classroom lists, course lists with durations, attendance lists and the full
// student roster.
package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var quotedID = regexp.MustCompile(`['"]([^'"]+)['"]`)

// decode returns the text as UTF-8, falling back to Windows-1254 for legacy exports.
func decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	out, err := charmap.Windows1254.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode input: %w", err)
	}
	return string(out), nil
}

func readText(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return decode(raw)
}

// lines yields trimmed, non-empty lines.
func lines(text string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func isHeader(line string) bool {
	return strings.HasPrefix(strings.ToUpper(line), "ALL OF THE") || strings.HasPrefix(line, "#")
}

// splitCodeValue splits "CODE;N" or "CODE:N". The semicolon wins when both appear.
func splitCodeValue(line string) (code, value string, ok bool) {
	sep := ""
	switch {
	case strings.Contains(line, ";"):
		sep = ";"
	case strings.Contains(line, ":"):
		sep = ":"
	default:
		return line, "", false
	}
	parts := strings.SplitN(line, sep, 2)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func parsePositive(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func openFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck
	if err := read(f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
