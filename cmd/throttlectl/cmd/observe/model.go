// Package observe implements the throttlectl observe TUI: a replay
// dashboard over a recorded eventlog of utilization snapshots, in the
// style of hydraidectl's live telemetry observer.
package observe

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hydraide/iothrottle/app/eventlog"
)

// Model is the Bubbletea model for the observe TUI. Unlike a live
// telemetry stream off a running server, it replays a sequence of
// utilization snapshots recorded by `throttlectl run --eventlog`,
// since the throttle engine here lives inside a short-lived CLI
// process rather than a long-running daemon with a query surface.
type Model struct {
	snapshots []*eventlog.Snapshot
	cursor    int
	playing   bool
	speed     time.Duration

	ceilingUS uint32

	viewport viewport.Model
	width    int
	height   int

	quitting bool
}

type tickMsg time.Time

// NewModel builds a replay Model over a loaded sequence of snapshots.
// ceilingUS is used purely for display coloring (see delayStyle).
func NewModel(snapshots []*eventlog.Snapshot, ceilingUS uint32) Model {
	return Model{
		snapshots: snapshots,
		playing:   len(snapshots) > 1,
		speed:     500 * time.Millisecond,
		ceilingUS: ceilingUS,
		viewport:  viewport.New(80, 20),
	}
}

func (m Model) Init() tea.Cmd {
	if !m.playing {
		return nil
	}
	return tick(m.speed)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 8

	case tickMsg:
		if m.playing {
			m.advance()
			return m, tick(m.speed)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case " ":
			m.playing = !m.playing
			if m.playing {
				return m, tick(m.speed)
			}
		case "right", "l", "n":
			m.advance()
		case "left", "h", "p":
			m.retreat()
		case "g", "home":
			m.cursor = 0
		case "G", "end":
			if len(m.snapshots) > 0 {
				m.cursor = len(m.snapshots) - 1
			}
		case "+":
			if m.speed > 50*time.Millisecond {
				m.speed -= 50 * time.Millisecond
			}
		case "-":
			m.speed += 50 * time.Millisecond
		}
	}
	return m, nil
}

func (m *Model) advance() {
	if m.cursor < len(m.snapshots)-1 {
		m.cursor++
	} else {
		m.playing = false
	}
}

func (m *Model) retreat() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if len(m.snapshots) == 0 {
		return panelStyle.Render("no snapshots recorded in this eventlog")
	}

	snap := m.snapshots[m.cursor]

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" throttlectl observe — snapshot %d/%d ", m.cursor+1, len(m.snapshots))))
	b.WriteString("\n\n")

	status := tabInactiveStyle.Render("paused")
	if m.playing {
		status = tabActiveStyle.Render("playing")
	}
	b.WriteString(fmt.Sprintf("%s  avg read lat: %dus  avg write lat: %dus  active tenants: %d  speed: %s\n\n",
		status, snap.AvgReadLatUS, snap.AvgWriteLatUS, snap.ActiveTenants, m.speed))

	b.WriteString(headerRowStyle.Render(fmt.Sprintf("%-10s %14s %10s %12s %12s %12s %12s", "TENANT", "UTIL", "DELAY(us)", "LOG-READS", "LOG-WRITES", "PHY-READS", "PHY-WRITES")))
	b.WriteString("\n")

	for _, t := range snap.Tenants {
		style := delayStyle(t.IODelayUS, m.ceilingUS)
		row := fmt.Sprintf("%-10d %14.1f %10d %12d %12d %12d %12d",
			t.TenantID, float64(t.IOUtil)/1000, t.IODelayUS,
			t.LogicalReads, t.LogicalWrites, t.PhysicalReads, t.PhysicalWrites)
		b.WriteString(style.Render(row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("space: play/pause  ←/→: step  g/G: start/end  +/-: speed  q: quit"))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
