package pkgmeta

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineLen bounds a single metadata line; longer lines abort the scan
// rather than buffering without limit.
const maxLineLen = 1 << 20

// Parse reads a line-oriented `Key: value` header block, such as a wheel's
// METADATA or an sdist's PKG-INFO, up to the first blank line. Continuation
// lines (leading whitespace) append to the previous value. Malformed lines
// are skipped and reported as diagnostics rather than failing the parse.
func Parse(r io.Reader) (*Record, []string, error) {
	record := NewRecord()
	var diagnostics []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLen)

	var currentKey string
	var currentValue strings.Builder
	lineno := 0

	flush := func() {
		if currentKey != "" {
			record.Add(currentKey, currentValue.String())
			currentKey = ""
			currentValue.Reset()
		}
	}

	for scanner.Scan() {
		lineno++
		line := scanner.Text()

		// Blank line ends the header block; the body (long description)
		// follows and is not part of the record.
		if line == "" {
			break
		}

		// Continuation lines (start with space or tab)
		if line[0] == ' ' || line[0] == '\t' {
			if currentKey == "" {
				diagnostics = append(diagnostics, fmt.Sprintf("line %d: continuation without a field", lineno))
				continue
			}
			currentValue.WriteString("\n")
			currentValue.WriteString(strings.TrimSpace(line))
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			diagnostics = append(diagnostics, fmt.Sprintf("line %d: no field separator", lineno))
			continue
		}

		flush()
		currentKey = line[:colon]
		currentValue.WriteString(strings.TrimSpace(line[colon+1:]))
	}
	flush()

	if err := scanner.Err(); err != nil {
		return record, diagnostics, fmt.Errorf("failed to read metadata: %w", err)
	}
	return record, diagnostics, nil
}
