package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/zombar/humanscore/internal/models"
)

const (
	defaultWidth = 80
	barWidth     = 20
)

// TerminalOptions detects color support and width for w. Non-terminal
// writers get plain, unwrapped output.
func TerminalOptions(w io.Writer) Options {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return Options{}
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = defaultWidth
	}
	return Options{Color: true, Width: width}
}

type terminalStyles struct {
	header lipgloss.Style
	muted  lipgloss.Style
	good   lipgloss.Style
	fair   lipgloss.Style
	poor   lipgloss.Style
	flags  map[models.FlagCategory]lipgloss.Style
}

func newTerminalStyles(color bool) terminalStyles {
	s := terminalStyles{
		header: lipgloss.NewStyle(),
		muted:  lipgloss.NewStyle(),
		good:   lipgloss.NewStyle(),
		fair:   lipgloss.NewStyle(),
		poor:   lipgloss.NewStyle(),
		flags:  make(map[models.FlagCategory]lipgloss.Style),
	}
	if !color {
		return s
	}

	s.header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	s.muted = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	s.good = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	s.fair = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	s.poor = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	for flag, bg := range htmlColors {
		s.flags[flag] = lipgloss.NewStyle().
			Background(lipgloss.Color(bg)).
			Foreground(lipgloss.Color("#000000"))
	}
	return s
}

func (s terminalStyles) score(v float64) lipgloss.Style {
	switch {
	case v >= 70:
		return s.good
	case v >= 40:
		return s.fair
	default:
		return s.poor
	}
}

func (s terminalStyles) flag(f models.FlagCategory) lipgloss.Style {
	if st, ok := s.flags[f]; ok {
		return st
	}
	return lipgloss.NewStyle()
}

// WriteTerminal writes a human-readable report
func WriteTerminal(w io.Writer, result models.AnalysisResult, opts Options) error {
	st := newTerminalStyles(opts.Color)
	var b strings.Builder

	b.WriteString(st.header.Render(Title) + "\n\n")

	if result.NoSentences() {
		b.WriteString(st.poor.Render(result.Error) + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	scoreStyle := st.score(result.HumanScore)
	fmt.Fprintf(&b, "Human-likeness score: %s %s\n",
		scoreStyle.Render(fmt.Sprintf("%.1f%%", result.HumanScore)),
		scoreStyle.Render(scoreBar(result.HumanScore)))
	b.WriteString(st.muted.Render(fmt.Sprintf(
		"perplexity %.1f | burstiness %.2f | diversity %.2f | classifier %.1f%%",
		result.Perplexity, result.Burstiness, result.LexicalDiversity, result.HumanProbability)) + "\n")
	b.WriteString(st.muted.Render(fmt.Sprintf(
		"sub-scores: perplexity %.0f, burstiness %.0f, diversity %.0f, readability %.0f",
		result.SubScores.Perplexity, result.SubScores.Burstiness,
		result.SubScores.Diversity, result.SubScores.ReadabilityUniformity)) + "\n\n")

	b.WriteString(st.header.Render("Sentences") + "\n")
	wrap := lipgloss.NewStyle()
	if opts.Width > 4 {
		wrap = wrap.Width(opts.Width - 4)
	}
	for _, s := range result.Sentences {
		label := fmt.Sprintf("%s %s (perplexity %.1f)", s.Suggestion.Symbol, s.Suggestion.Short, s.Perplexity)
		b.WriteString("  " + st.muted.Render(label) + "\n")
		b.WriteString(indent(st.flag(s.Flag).Render(wrap.Render(s.Sentence)), "    ") + "\n")
		if s.Flag != models.FlagHuman {
			b.WriteString(indent(st.muted.Render(wrap.Render("-> "+s.Suggestion.Suggestion)), "    ") + "\n")
		}
	}

	b.WriteString("\n" + st.header.Render("Flags") + "\n")
	b.WriteString(flagSummary(result) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func scoreBar(score float64) string {
	filled := int(score/100*barWidth + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// flagSummary lists per-flag counts in display order
func flagSummary(result models.AnalysisResult) string {
	counts := result.FlagCounts()
	order := make(map[models.FlagCategory]int, len(models.AllFlags))
	for i, f := range models.AllFlags {
		order[f] = i
	}

	flags := make([]models.FlagCategory, 0, len(counts))
	for f := range counts {
		flags = append(flags, f)
	}
	sort.Slice(flags, func(i, j int) bool { return order[flags[i]] < order[flags[j]] })

	parts := make([]string, 0, len(flags))
	for _, f := range flags {
		parts = append(parts, fmt.Sprintf("%s %d", f, counts[f]))
	}
	return "  " + strings.Join(parts, ", ")
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
