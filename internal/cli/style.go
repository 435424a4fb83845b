package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/secureplan/internal/model"
	"golang.org/x/term"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))

	priorityStyles = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D")),
		model.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D")),
	}
)

// painter applies styles only when writing to a terminal
type painter struct {
	color bool
}

func newPainter(w io.Writer) painter {
	f, ok := w.(*os.File)
	return painter{color: ok && term.IsTerminal(int(f.Fd()))}
}

func (p painter) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p painter) header(text string) string { return p.render(headerStyle, text) }
func (p painter) dim(text string) string    { return p.render(dimStyle, text) }
func (p painter) err(text string) string    { return p.render(errorStyle, text) }

func (p painter) priority(pr model.Priority) string {
	label := "  " + string(pr)
	if pr == model.PriorityHigh {
		label = "▲ " + string(pr)
	}
	style, ok := priorityStyles[pr]
	if !ok {
		return label
	}
	return p.render(style, label)
}
