package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DrSkyle/provtag/pkg/engine/report"
	"github.com/DrSkyle/provtag/pkg/resource"
)

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModel_CountsOutcomes(t *testing.T) {
	m := NewModel("us-east-1", false)
	m = send(m,
		OutcomeMsg{Resource: resource.Resource{ID: "i-1"}, Kind: resource.Resolved,
			Record: resource.ProvenanceRecord{Creator: "alice@example.com", CreatedDate: "2024-03-01"}},
		OutcomeMsg{Resource: resource.Resource{ID: "i-2"}, Kind: resource.Resolved, Record: resource.UnknownRecord()},
		OutcomeMsg{Resource: resource.Resource{ID: "i-3"}, Kind: resource.Failed, Stage: resource.StageWrite, Err: errors.New("conflict")},
		OutcomeMsg{Resource: resource.Resource{ID: "i-4"}, Kind: resource.AlreadyTagged},
	)

	if got := m.Processed(); got != 4 {
		t.Fatalf("Processed() = %d, want 4", got)
	}
	if m.unknown != 1 {
		t.Errorf("unknown = %d, want 1", m.unknown)
	}

	view := m.View()
	for _, want := range []string{"us-east-1", "alice@example.com", "i-3", "conflict"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_RecentIsBounded(t *testing.T) {
	m := NewModel("eu-west-1", true)
	for i := 0; i < maxRecent+5; i++ {
		m = send(m, OutcomeMsg{Resource: resource.Resource{ID: fmt.Sprintf("r-%d", i)}, Kind: resource.AlreadyTagged})
	}
	if len(m.recent) != maxRecent {
		t.Fatalf("recent = %d, want %d", len(m.recent), maxRecent)
	}
	if m.recent[0].Resource.ID != "r-5" {
		t.Errorf("oldest kept = %s, want r-5", m.recent[0].Resource.ID)
	}
	if !strings.Contains(m.View(), "dry run") {
		t.Error("dry run marker missing")
	}
}

func TestModel_DoneQuits(t *testing.T) {
	m := NewModel("us-east-1", false)
	next, cmd := m.Update(DoneMsg{Summary: &report.Summary{RunID: "run-1"}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("DoneMsg should quit the program")
	}
	if next.(Model).View() != "" {
		t.Error("finished model should render nothing")
	}
}

func TestModel_KeyQuit(t *testing.T) {
	m := NewModel("us-east-1", false)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !next.(Model).Quitting() {
		t.Error("q should mark the model as quitting")
	}
}
