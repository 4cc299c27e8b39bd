package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/render/sink"
	"github.com/matzehuels/riskviz/pkg/zone"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

	zoneStyles = map[zone.Zone]lipgloss.Style{
		zone.Low:    lipgloss.NewStyle().Foreground(colorGreen),
		zone.Medium: lipgloss.NewStyle().Foreground(colorYellow),
		zone.High:   lipgloss.NewStyle().Foreground(colorRed),
	}
)

// =============================================================================
// CaseListModel - Interactive case selection
// =============================================================================

// CaseSelection holds the chosen case and view.
type CaseSelection struct {
	Case record.Case
	View sink.View
}

// CaseListModel is the bubbletea model for interactive case selection.
// Tab cycles through the per-case views.
type CaseListModel struct {
	Cases    []record.Case
	Labels   map[string]string // semantic label per case label
	Cursor   int
	Offset   int
	Height   int
	ViewIdx  int // index into sink.Views
	Selected *CaseSelection
}

// NewCaseListModel creates a new case list model starting at the given view.
func NewCaseListModel(cases []record.Case, labels map[string]string, view sink.View) CaseListModel {
	m := CaseListModel{Cases: cases, Labels: labels, Height: 15}
	for i, v := range sink.Views {
		if v == view {
			m.ViewIdx = i
		}
	}
	return m
}

func (m CaseListModel) Init() tea.Cmd {
	return nil
}

func (m CaseListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Cases)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "tab":
			m.ViewIdx = (m.ViewIdx + 1) % len(sink.Views)
		case "shift+tab":
			m.ViewIdx = (m.ViewIdx + len(sink.Views) - 1) % len(sink.Views)
		case "enter":
			if len(m.Cases) == 0 {
				return m, nil
			}
			m.Selected = &CaseSelection{Case: m.Cases[m.Cursor], View: sink.Views[m.ViewIdx]}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-7, 5)
	}
	return m, nil
}

func (m CaseListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Case"))
	b.WriteString("  ")
	b.WriteString(StyleHighlight.Render(string(sink.Views[m.ViewIdx])))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab view  ⏎ render  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Cases))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		c := m.Cases[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		z := "—"
		if cz, err := zone.Classify(c.RiskMean); err == nil {
			z = zoneStyles[cz].Render(cz.String())
		}
		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%d", c.ID),
			c.Label,
			fmt.Sprintf("%.1f%%", c.RiskMean*100),
			fmt.Sprintf("[%.1f%%, %.1f%%]", c.CILow*100, c.CIHigh*100),
			z,
			m.Labels[c.Label],
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Label", "Risk", "95% CI", "Zone", "Meaning").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			if col == 6 {
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(m.Cases)), len(m.Cases))))

	return b.String()
}
