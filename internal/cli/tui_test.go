package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/render/sink"
)

var browseCases = []record.Case{
	{ID: 1, RiskMean: 0.12, CILow: 0.08, CIHigh: 0.16, Label: "LOW_tight"},
	{ID: 2, RiskMean: 0.52, CILow: 0.3, CIHigh: 0.74, Label: "MID_wide"},
	{ID: 3, RiskMean: 0.81, CILow: 0.77, CIHigh: 0.85, Label: "HIGH_tight"},
}

func press(m CaseListModel, keys ...tea.KeyMsg) (CaseListModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(CaseListModel)
	}
	return m, cmd
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyQuit  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
)

func TestCaseListNavigation(t *testing.T) {
	tests := []struct {
		name       string
		keys       []tea.KeyMsg
		wantCursor int
	}{
		{"start", nil, 0},
		{"down", []tea.KeyMsg{keyDown}, 1},
		{"clamped at end", []tea.KeyMsg{keyDown, keyDown, keyDown, keyDown}, 2},
		{"clamped at start", []tea.KeyMsg{keyUp, keyUp}, 0},
		{"down and up", []tea.KeyMsg{keyDown, keyDown, keyUp}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := press(NewCaseListModel(browseCases, nil, sink.ViewDotplot), tt.keys...)
			if m.Cursor != tt.wantCursor {
				t.Errorf("Cursor = %d, want %d", m.Cursor, tt.wantCursor)
			}
		})
	}
}

func TestCaseListSelect(t *testing.T) {
	m := NewCaseListModel(browseCases, nil, sink.ViewInterval)
	m, cmd := press(m, keyDown, keyTab, keyEnter)

	if cmd == nil {
		t.Fatal("enter did not quit the program")
	}
	if m.Selected == nil {
		t.Fatal("no selection")
	}
	if m.Selected.Case.ID != 2 {
		t.Errorf("selected case %d, want 2", m.Selected.Case.ID)
	}
	if m.Selected.View != sink.ViewSpectrum {
		t.Errorf("selected view %q, want %q", m.Selected.View, sink.ViewSpectrum)
	}
}

func TestCaseListViewCycles(t *testing.T) {
	m := NewCaseListModel(browseCases, nil, sink.ViewDashboard)
	m, _ = press(m, keyTab)
	if got := sink.Views[m.ViewIdx]; got != sink.ViewDotplot {
		t.Errorf("view after wrap = %q, want %q", got, sink.ViewDotplot)
	}
}

func TestCaseListQuit(t *testing.T) {
	m, cmd := press(NewCaseListModel(browseCases, nil, sink.ViewDotplot), keyQuit)
	if cmd == nil {
		t.Error("q did not quit the program")
	}
	if m.Selected != nil {
		t.Error("quit made a selection")
	}
}

func TestCaseListEmpty(t *testing.T) {
	m, cmd := press(NewCaseListModel(nil, nil, sink.ViewDotplot), keyEnter)
	if cmd != nil || m.Selected != nil {
		t.Error("enter on an empty list should do nothing")
	}
	if !strings.Contains(m.View(), "[0/0]") {
		t.Errorf("empty list view missing counter:\n%s", m.View())
	}
}

func TestCaseListView(t *testing.T) {
	m := NewCaseListModel(browseCases, map[string]string{"MID_wide": "Uncertain mid"}, sink.ViewSpectrum)
	out := m.View()
	for _, want := range []string{"Select Case", "spectrum", "LOW_tight", "52.0%", "Uncertain mid", "[1/3]"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}
