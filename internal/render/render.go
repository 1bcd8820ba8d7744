package render

import (
	"bytes"
	"fmt"
	"html/template"
	"path"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Reason explains why a file could not be rendered
type Reason int

const (
	// ReasonNone means the file was rendered
	ReasonNone Reason = iota

	// ReasonBinary means the content does not look like text
	ReasonBinary

	// ReasonTooLarge means the content exceeds the configured render limit
	ReasonTooLarge
)

// String returns a user-facing explanation
func (r Reason) String() string {
	switch r {
	case ReasonBinary:
		return "This file appears to be binary."
	case ReasonTooLarge:
		return "This file is too large to display inline with syntax highlighting."
	default:
		return ""
	}
}

// Result is the outcome of a render attempt: either highlighted markup or a
// structured cannot-render reason, never both.
type Result struct {
	HTML   template.HTML
	Reason Reason
}

// Rendered reports whether the result carries markup
func (r Result) Rendered() bool {
	return r.Reason == ReasonNone
}

// Renderer turns file bytes into safe, syntax-highlighted HTML. It never
// interprets content beyond text detection and lexing; binary or oversized
// content is refused with a reason so callers can offer a raw download.
type Renderer struct {
	sizeLimit int64
	style     *chroma.Style
	formatter *chromahtml.Formatter
	css       template.CSS
}

// New creates a renderer with the given inline-render size limit in bytes
func New(sizeLimit int64) (*Renderer, error) {
	style := styles.Get("xcode")
	if style == nil {
		style = styles.Fallback
	}

	formatter := chromahtml.New(
		chromahtml.WithClasses(true),
		chromahtml.WithLineNumbers(true),
		chromahtml.WithLinkableLineNumbers(true, "L"),
	)

	var cssBuf bytes.Buffer
	if err := formatter.WriteCSS(&cssBuf, style); err != nil {
		return nil, fmt.Errorf("failed to build highlight CSS: %w", err)
	}

	return &Renderer{
		sizeLimit: sizeLimit,
		style:     style,
		formatter: formatter,
		css:       template.CSS(cssBuf.String()),
	}, nil
}

// SizeLimit returns the inline-render size limit in bytes
func (r *Renderer) SizeLimit() int64 {
	return r.sizeLimit
}

// CSS returns the stylesheet backing rendered markup
func (r *Renderer) CSS() template.CSS {
	return r.css
}

// Render produces highlighted markup for the file's bytes, using the
// filename for language detection.
func (r *Renderer) Render(name string, data []byte) (Result, error) {
	if int64(len(data)) > r.sizeLimit {
		return Result{Reason: ReasonTooLarge}, nil
	}
	if !IsText(data) {
		return Result{Reason: ReasonBinary}, nil
	}

	lexer := lexers.Match(path.Base(name))
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, string(data))
	if err != nil {
		return Result{}, fmt.Errorf("failed to tokenise %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return Result{}, fmt.Errorf("failed to format %s: %w", name, err)
	}
	return Result{HTML: template.HTML(buf.String())}, nil
}

// IsText reports whether data looks like renderable text. A NUL byte or a
// mostly-invalid UTF-8 prefix marks the content as binary.
func IsText(data []byte) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	if len(data) == 0 {
		return true
	}

	probe := data
	if len(probe) > 8192 {
		probe = probe[:8192]
	}

	// Tolerate a small fraction of invalid UTF-8, which also absorbs a rune
	// truncated at the probe boundary.
	invalid, total := 0, 0
	for len(probe) > 0 {
		r, size := utf8.DecodeRune(probe)
		if r == utf8.RuneError && size == 1 {
			invalid++
		}
		total++
		probe = probe[size:]
	}
	return invalid*20 <= total
}
