package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/DrSkyle/provtag/pkg/resource"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(20)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFCC00"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

// PrintSummary renders a human-readable run summary.
func PrintSummary(w io.Writer, s *Summary) {
	var b strings.Builder

	title := "Provenance Reconciliation"
	if s.DryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	row := func(label string, style lipgloss.Style, n int) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(style.Render(fmt.Sprintf("%d", n)))
		b.WriteString("\n")
	}
	row("Listed", lipgloss.NewStyle(), s.Listed)
	row("Already tagged", okStyle, s.AlreadyTagged)
	row("Resolved", okStyle, s.Resolved)
	row("  of which unknown", warnStyle, s.ResolvedUnknown)
	row("Excluded", lipgloss.NewStyle(), s.Excluded)
	row("Failed (resolve)", failStyle(s.FailedResolution), s.FailedResolution)
	row("Failed (write)", failStyle(s.FailedWrite), s.FailedWrite)

	b.WriteString(labelStyle.Render("Run"))
	b.WriteString(fmt.Sprintf("%s in %s", s.RunID, s.Duration().Round(time.Millisecond)))

	fmt.Fprintln(w, boxStyle.Render(b.String()))

	for _, o := range s.Outcomes {
		if o.Kind == resource.Failed {
			fmt.Fprintf(w, " %s %s [%s] %v\n", errStyle.Render("x"), o.Resource.ID, o.Stage, o.Err)
		}
	}
}

func failStyle(n int) lipgloss.Style {
	if n > 0 {
		return errStyle
	}
	return okStyle
}
