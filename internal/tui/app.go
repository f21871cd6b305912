// Package tui provides a terminal dashboard that shows a ring buffer filling
// and draining while the pipeline runs.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Geun-Oh/rbq/internal/frame"
	"github.com/Geun-Oh/rbq/internal/monitor"
	"github.com/Geun-Oh/rbq/internal/pipeline"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(1).
			PaddingRight(1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#353533"))

	fullStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Bold(true)

	gaugeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#44AAFF"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// FrameMsg delivers a consumed frame.
type FrameMsg frame.Frame

// SampleMsg delivers a ring snapshot taken by the consumer.
type SampleMsg pipeline.Sample

// TickMsg triggers periodic counter refreshes.
type TickMsg time.Time

// SpikeMsg reports a second whose input rate spiked.
type SpikeMsg struct {
	PerSecond int64
	At        time.Time
}

// spikeHold is how long a spike stays on the status bar.
const spikeHold = 5 * time.Second

// DoneMsg signals the pipeline has finished.
type DoneMsg struct {
	Err error
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	width  int
	height int

	Stats    *monitor.Stats
	Source   string
	capacity int

	sample   pipeline.Sample
	recent   []string
	maxLines int
	paused   bool

	spike   int64
	spikeAt time.Time
	now     func() time.Time

	done bool
	err  error
}

// NewModel creates a dashboard for a ring of the given capacity.
func NewModel(stats *monitor.Stats, capacity int, sourceName string) Model {
	return Model{
		Stats:    stats,
		Source:   sourceName,
		capacity: capacity,
		sample:   pipeline.Sample{Cap: capacity},
		maxLines: 200,
		now:      time.Now,
	}
}

// Init starts the tick timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.WindowSize())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p":
			m.paused = !m.paused
		}
	case SampleMsg:
		if !m.paused {
			m.sample = pipeline.Sample(msg)
		}
	case FrameMsg:
		if !m.paused {
			f := frame.Frame(msg)
			m.recent = append(m.recent, fmt.Sprintf("#%d %s", f.Seq, f.Payload))
			if len(m.recent) > m.maxLines {
				m.recent = m.recent[len(m.recent)-m.maxLines:]
			}
		}
	case SpikeMsg:
		m.spike = msg.PerSecond
		m.spikeAt = msg.At
	case TickMsg:
		return m, tickCmd()
	case DoneMsg:
		m.done = true
		m.err = msg.Err
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var sb strings.Builder

	title := titleStyle.Render(fmt.Sprintf(" rbq watch: %s ", m.Source))
	status := "▶ RUNNING"
	switch {
	case m.err != nil:
		status = "✖ " + m.err.Error()
	case m.done:
		status = "✔ DONE"
	case m.paused:
		status = "⏸ PAUSED"
	case m.spiking():
		status = fmt.Sprintf("⚡ SPIKE %d/s", m.spike)
	}
	statusText := statusBarStyle.Render(" " + status + " ")
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(statusText), 0)
	sb.WriteString(title + statusBarStyle.Render(strings.Repeat(" ", gap)) + statusText)
	sb.WriteString("\n\n")

	sb.WriteString(m.renderGauge(max(m.width-30, 10)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(" enq %d │ rej %d │ ovw %d │ deq %d │ high %d/%d\n",
		m.Stats.Enqueued(), m.Stats.Rejected(), m.Stats.Overwritten(),
		m.Stats.Dequeued(), m.Stats.HighWater(), m.capacity))

	sb.WriteString("\n Next out:\n")
	if len(m.sample.Head) == 0 {
		sb.WriteString(dimStyle.Render("   (empty)") + "\n")
	}
	for _, f := range m.sample.Head {
		sb.WriteString(fmt.Sprintf("   #%d %s\n", f.Seq, truncate(string(f.Payload), m.width-12)))
	}

	used := 8 + len(m.sample.Head)
	viewport := max(m.height-used-2, 1)
	sb.WriteString("\n Delivered:\n")
	start := max(len(m.recent)-viewport, 0)
	for _, line := range m.recent[start:] {
		sb.WriteString(dimStyle.Render("   "+truncate(line, m.width-4)) + "\n")
	}

	sb.WriteString(helpStyle.Render(" [p]Pause  [q]Quit"))
	return sb.String()
}

func (m Model) spiking() bool {
	return !m.spikeAt.IsZero() && m.now().Sub(m.spikeAt) < spikeHold
}

func (m Model) renderGauge(width int) string {
	capacity := max(m.sample.Cap, 1)
	filled := min(m.sample.Len*width/capacity, width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	style := gaugeStyle
	if m.sample.Len >= m.sample.Cap && m.sample.Cap > 0 {
		style = fullStyle
	}
	return fmt.Sprintf(" ring %s %d/%d", style.Render(bar), m.sample.Len, m.sample.Cap)
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func truncate(s string, maxLen int) string {
	if maxLen <= 1 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}
