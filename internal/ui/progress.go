package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	calmprogress "calm/internal/progress"
)

type progressModel struct {
	title   string
	events  <-chan calmprogress.Event
	spinner spinner.Model
	prog    progress.Model
	items   []toolItem
	index   map[string]int
	general string
	width   int
	done    bool
}

type toolItem struct {
	id     string
	status string
	step   string
	detail string
}

type eventMsg calmprogress.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that shows one row per tool
// with its current step and the last status line of the running process.
func NewProgressModel(title string, tools []string, events <-chan calmprogress.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]toolItem, 0, len(tools))
	index := make(map[string]int, len(tools))
	for i, id := range tools {
		items = append(items, toolItem{id: id, status: string(calmprogress.StatusQueued)})
		index[id] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(calmprogress.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		// Children are not cancellable; ctrl+c only stops redrawing.
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.general != "" {
		header = fmt.Sprintf("%s (%s)", header, m.general)
	}
	if m.done {
		header = "done: " + m.title
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 8
	nameWidth := 0
	for _, item := range m.items {
		nameWidth = max(nameWidth, runewidth.StringWidth(item.id))
	}
	restWidth := max(m.width-statusWidth-nameWidth-6, 20)
	detailStyle := lipgloss.NewStyle().Faint(true)

	for _, item := range m.items {
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, label(item.status)))
		name := runewidth.FillRight(item.id, nameWidth)
		line := fmt.Sprintf("  %s %s", statusStyled, name)
		if item.step != "" {
			line += "  " + truncate(item.step, restWidth)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if item.detail != "" && item.status == string(calmprogress.StatusStarted) {
			pad := strings.Repeat(" ", statusWidth+3)
			b.WriteString(pad + detailStyle.Render(truncate(item.detail, m.width-len(pad))))
			b.WriteString("\n")
		}
	}

	if len(m.items) > 0 {
		b.WriteString("\n")
		if m.done {
			b.WriteString(m.prog.ViewAs(1.0))
		} else {
			b.WriteString(m.prog.View())
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev calmprogress.Event) tea.Cmd {
	idx, ok := m.index[ev.Tool]
	if !ok {
		if ev.Status == calmprogress.StatusStarted && ev.Step != "" {
			m.general = ev.Step
		}
		return nil
	}
	item := &m.items[idx]
	switch ev.Status {
	case calmprogress.StatusStarted:
		item.status = string(calmprogress.StatusStarted)
		if ev.Step != "" {
			item.step = ev.Step
			item.detail = ""
		}
	case calmprogress.StatusWorking:
		item.detail = ev.Message
	case calmprogress.StatusDone, calmprogress.StatusError:
		if ev.Step != "" {
			// A failed step does not end the tool; lint keeps going.
			return nil
		}
		item.status = string(ev.Status)
		item.detail = ""
		if ev.Err != nil {
			item.step = ev.Err.Error()
		} else {
			item.step = ""
		}
	}
	return m.prog.SetPercent(m.fraction())
}

func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 {
		return 0
	}
	finished := 0.0
	for _, item := range m.items {
		switch item.status {
		case string(calmprogress.StatusDone), string(calmprogress.StatusError):
			finished += 1.0
		case string(calmprogress.StatusStarted):
			finished += 0.5
		}
	}
	return finished / float64(len(m.items))
}

func label(status string) string {
	if status == string(calmprogress.StatusStarted) {
		return "running"
	}
	return status
}

func styleStatus(status string) lipgloss.Style {
	switch calmprogress.Status(status) {
	case calmprogress.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case calmprogress.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case calmprogress.StatusStarted:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
