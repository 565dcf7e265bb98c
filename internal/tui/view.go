package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"memory-pairs/internal/game"
)

var (
	closedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	openStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#dcdcdc")).Bold(true)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#a8db8f"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#db8f8f")).Bold(true)

	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#dcdcdc")).Bold(true)
	wonStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a8db8f")).Bold(true)
	lostStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#db8f8f")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dcdcdc"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#db8f8f"))

	frameStyle = lipgloss.NewStyle().Padding(1, 2)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(statusStyle.Render(m.statusLine()))
	b.WriteString("\n\n")

	switch m.snap.State.Phase {
	case game.PhaseRunning:
		b.WriteString(m.boardView())
	case game.PhaseWon:
		b.WriteString(wonStyle.Render("Victory!"))
		b.WriteString("\n")
		b.WriteString(wonStyle.Render("Click anywhere to try again!"))
	case game.PhaseLost:
		b.WriteString(lostStyle.Render("Defeat!"))
		b.WriteString("\n")
		b.WriteString(lostStyle.Render("Click anywhere to try again!"))
	default:
		b.WriteString(titleStyle.Render("Memory game"))
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Click anywhere to start!"))
	}

	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(m.help()))

	return frameStyle.Render(b.String())
}

func (m Model) statusLine() string {
	if m.snap.State.Phase == game.PhaseRunning {
		return fmt.Sprintf(":)  Seconds left: %d", m.snap.State.SecondsLeft)
	}
	return "Lets Go!"
}

func (m Model) help() string {
	if m.snap.State.Phase == game.PhaseRunning {
		return "arrows/hjkl move • enter/space open • q quit"
	}
	return "enter/space start • q quit"
}

func (m Model) boardView() string {
	board := m.snap.State.Board
	rows := make([]string, 0, m.rules.Rows)

	for r := 0; r < m.rules.Rows; r++ {
		cells := make([]string, 0, m.rules.Cols)
		for c := 0; c < m.rules.Cols; c++ {
			i := r*m.rules.Cols + c
			if i >= len(board) {
				break
			}
			cells = append(cells, m.cellView(i, board[i]))
		}
		rows = append(rows, strings.Join(cells, " "))
	}
	return strings.Join(rows, "\n")
}

func (m Model) cellView(i int, cell game.Cell) string {
	var face string
	switch cell.Status {
	case game.CellOpen:
		face = openStyle.Render(string(cell.Symbol))
	case game.CellDone:
		face = doneStyle.Render(string(cell.Symbol))
	case game.CellFailed:
		face = failedStyle.Render(string(cell.Symbol))
	default:
		face = closedStyle.Render("#")
	}

	if i == m.cursor {
		return "[" + face + "]"
	}
	return " " + face + " "
}
