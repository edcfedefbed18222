package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/fastroot/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// maxEdgeLabels caps the leaf names shown per root edge.
const maxEdgeLabels = 4

// =============================================================================
// AlternativeListModel - Interactive rooting selection
// =============================================================================

// AlternativeListModel is the bubbletea model for choosing one of the
// alternative rootings of a tree.
type AlternativeListModel struct {
	Tree     pipeline.TreeResult
	Method   string
	Cursor   int
	Selected int // -1 until enter is pressed
	Height   int
	Offset   int
}

// NewAlternativeListModel creates a list over the alternatives of tr.
func NewAlternativeListModel(tr pipeline.TreeResult, method string) AlternativeListModel {
	return AlternativeListModel{
		Tree:     tr,
		Method:   method,
		Selected: -1,
		Height:   15,
	}
}

func (m AlternativeListModel) Init() tea.Cmd {
	return nil
}

func (m AlternativeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Tree.Newick)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Selected = m.Cursor
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m AlternativeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Tree %d: select a rooting", m.Tree.Index)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q keep best"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Tree.Newick))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		score := "—"
		if i < len(m.Tree.Scores) {
			score = strconv.FormatFloat(m.Tree.Scores[i], 'g', 6, 64)
		}
		edge := "—"
		if i < len(m.Tree.Edges) {
			edge = edgeSummary(m.Tree.Edges[i])
		}
		rows = append(rows, []string{cursor, strconv.Itoa(i + 1), score, edge})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Rank", m.Method+" score", "Root edge above").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			if col == 2 {
				return StyleNumber
			}
			return listDimStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Tree.Newick))))

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// edgeSummary names the leaves below an edge, eliding long clades.
func edgeSummary(leaves []string) string {
	if len(leaves) <= maxEdgeLabels {
		return strings.Join(leaves, " ")
	}
	return fmt.Sprintf("%s … (+%d)", strings.Join(leaves[:maxEdgeLabels], " "), len(leaves)-maxEdgeLabels)
}

// keepAlternative reduces tr to the alternative at index i.
func keepAlternative(tr *pipeline.TreeResult, i int) {
	tr.Newick = tr.Newick[i : i+1]
	if i < len(tr.Scores) {
		tr.Score = tr.Scores[i]
		tr.Scores = tr.Scores[i : i+1]
	}
	if i < len(tr.Edges) {
		tr.RootEdge = tr.Edges[i]
		tr.Edges = tr.Edges[i : i+1]
	}
}
