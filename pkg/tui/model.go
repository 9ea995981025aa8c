// Package tui renders live reconciliation progress for interactive runs.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DrSkyle/provtag/pkg/engine/report"
	"github.com/DrSkyle/provtag/pkg/resource"
)

var (
	special   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF99"))
	subtle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0055"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// maxRecent is how many of the latest outcomes stay on screen.
const maxRecent = 8

// OutcomeMsg reports one finished resource.
type OutcomeMsg resource.Outcome

// DoneMsg ends the program with the run result.
type DoneMsg struct {
	Summary *report.Summary
	Err     error
}

type Model struct {
	spinner  spinner.Model
	progress progress.Model

	Region string
	DryRun bool

	counts  map[resource.OutcomeKind]int
	unknown int
	recent  []resource.Outcome

	done     bool
	quitting bool
	summary  *report.Summary
	err      error
	width    int

	startTime time.Time
}

func NewModel(region string, dryRun bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = special

	return Model{
		spinner:   s,
		progress:  progress.New(progress.WithGradient("#00FF99", "#00CCFF")),
		Region:    region,
		DryRun:    dryRun,
		counts:    make(map[resource.OutcomeKind]int),
		startTime: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(msg.Width-20, 10)
	case OutcomeMsg:
		o := resource.Outcome(msg)
		m.counts[o.Kind]++
		if o.Kind == resource.Resolved && o.Record.IsUnknown() {
			m.unknown++
		}
		m.recent = append(m.recent, o)
		if len(m.recent) > maxRecent {
			m.recent = m.recent[len(m.recent)-maxRecent:]
		}
	case DoneMsg:
		m.done = true
		m.summary = msg.Summary
		m.err = msg.Err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// Processed is the number of outcomes received so far.
func (m Model) Processed() int {
	n := 0
	for _, c := range m.counts {
		n += c
	}
	return n
}

// Quitting reports whether the user aborted.
func (m Model) Quitting() bool {
	return m.quitting
}

func (m Model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	header := fmt.Sprintf("%s Reconciling provenance in %s", m.spinner.View(), m.Region)
	if m.DryRun {
		header += subtle.Render(" (dry run)")
	}
	b.WriteString(header + "\n\n")

	processed := m.Processed()
	settled := m.counts[resource.AlreadyTagged] + m.counts[resource.Resolved] + m.counts[resource.Excluded]
	ratio := 0.0
	if processed > 0 {
		ratio = float64(settled) / float64(processed)
	}
	b.WriteString(m.progress.ViewAs(ratio) + "\n\n")

	b.WriteString(fmt.Sprintf("  processed %d  tagged %d  unknown %s  already %d  excluded %d  failed %s\n\n",
		processed,
		m.counts[resource.Resolved],
		warnStyle.Render(fmt.Sprint(m.unknown)),
		m.counts[resource.AlreadyTagged],
		m.counts[resource.Excluded],
		failStyle.Render(fmt.Sprint(m.counts[resource.Failed])),
	))

	for _, o := range m.recent {
		b.WriteString("  " + renderOutcome(o) + "\n")
	}

	b.WriteString(subtle.Render(fmt.Sprintf("\n  %s elapsed · q to quit", time.Since(m.startTime).Round(time.Second))))
	return b.String()
}

func renderOutcome(o resource.Outcome) string {
	switch o.Kind {
	case resource.Resolved:
		return special.Render("✓") + fmt.Sprintf(" %s  %s %s", o.Resource.ID, o.Record.Creator, subtle.Render(o.Record.CreatedDate))
	case resource.Failed:
		return failStyle.Render("✗") + fmt.Sprintf(" %s  [%s] %v", o.Resource.ID, o.Stage, o.Err)
	case resource.Excluded:
		return subtle.Render("- " + o.Resource.ID)
	default:
		return subtle.Render("· " + o.Resource.ID)
	}
}
