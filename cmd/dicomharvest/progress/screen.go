package progress

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type progressMsg struct {
	done, total int
}

type doneMsg struct {
	err error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	percentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// model is the bubbletea screen shown while a job runs.
type model struct {
	title     string
	done      int
	total     int
	start     time.Time
	width     int
	finished  bool
	cancelled bool
	err       error
}

func newModel(title string) *model {
	return &model{title: title, start: time.Now()}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case progressMsg:
		m.done = msg.done
		m.total = msg.total
	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) View() string {
	if m.cancelled {
		return "Cancelled.\n"
	}

	var percent float64
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total) * 100
	}

	barWidth := 40
	if m.width > 60 {
		barWidth = min(m.width/2, 60)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n")
	sb.WriteString(renderBar(percent, barWidth))
	sb.WriteString(" ")
	sb.WriteString(percentStyle.Render(fmt.Sprintf("%d%%", int(percent))))
	sb.WriteString("\n\n")
	sb.WriteString(detailStyle.Render(fmt.Sprintf("File %d/%d", m.done, m.total)))
	sb.WriteString("\n")
	sb.WriteString(detailStyle.Render(fmt.Sprintf("Elapsed: %.1fs", time.Since(m.start).Seconds())))
	sb.WriteString("\n")
	if !m.finished {
		sb.WriteString("\n")
		sb.WriteString(hintStyle.Render("Press Ctrl+C to quit"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderBar(percent float64, width int) string {
	filled := min(int(percent/100*float64(width)), width)
	return barStyle.Render("["+strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled)+"]")
}
