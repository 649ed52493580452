// Package report renders an AnalysisResult for people and programs: JSON
// and HTML exports, a Word document, and a colored terminal view.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zombar/humanscore/internal/models"
)

// Title heads every human-readable report
const Title = "AI Analysis Report"

// Format is an output format name
type Format string

const (
	FormatTerminal Format = "terminal"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
)

// ErrUnknownFormat is returned for format names outside Formats()
var ErrUnknownFormat = errors.New("unknown report format")

// Formats lists the supported formats
func Formats() []Format {
	return []Format{FormatTerminal, FormatJSON, FormatHTML, FormatDOCX}
}

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ContentType returns the MIME type served for f
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Filename returns the download name for f
func (f Format) Filename() string {
	switch f {
	case FormatTerminal:
		return "analysis.txt"
	default:
		return "analysis." + string(f)
	}
}

// Options tune rendering
type Options struct {
	// Generated is stamped into the report; zero means now
	Generated time.Time
	// Color enables ANSI styling in terminal output
	Color bool
	// Width wraps terminal output; zero disables wrapping
	Width int
}

func (o Options) generated() time.Time {
	if o.Generated.IsZero() {
		return time.Now()
	}
	return o.Generated
}

// Render writes result to w in format f
func Render(w io.Writer, f Format, result models.AnalysisResult, opts Options) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, result, opts.generated())
	case FormatHTML:
		return WriteHTML(w, result, opts.generated())
	case FormatDOCX:
		return WriteDOCX(w, result, opts.generated())
	case FormatTerminal:
		return WriteTerminal(w, result, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// htmlColors and docxColors shade sentences by flag
var (
	htmlColors = map[models.FlagCategory]string{
		models.FlagAIVeryPredictable: "#ffdcdc",
		models.FlagAIPredictable:     "#fff0cc",
		models.FlagUniformRhythm:     "#ffffcc",
		models.FlagBoilerplate:       "#f0f0ff",
		models.FlagLowDiversity:      "#cceeff",
		models.FlagMixed:             "#ccffcc",
		models.FlagHuman:             "#f0fff0",
	}
	docxColors = map[models.FlagCategory]string{
		models.FlagAIVeryPredictable: "FFDDDD",
		models.FlagAIPredictable:     "FFF0CC",
		models.FlagUniformRhythm:     "FFFFCC",
		models.FlagBoilerplate:       "E0E0FF",
		models.FlagLowDiversity:      "CCEFFF",
		models.FlagMixed:             "CCFFCC",
		models.FlagHuman:             "FFFFFF",
	}
)

func colorFor(colors map[models.FlagCategory]string, flag models.FlagCategory, fallback string) string {
	if c, ok := colors[flag]; ok {
		return c
	}
	return fallback
}

func tooltip(s models.SentenceRecord) string {
	return fmt.Sprintf("%s (Perplexity: %.1f)", s.Suggestion.Short, s.Perplexity)
}
