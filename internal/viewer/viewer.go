// Package viewer is a terminal front end for picking start and end points
// on a map and inspecting the resulting route.
package viewer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanshika/mapnav/backend/internal/routing"
	"github.com/vanshika/mapnav/backend/internal/selection"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginBottom(1)

	floorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5F5FD7")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFF00"))
	startStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	endStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD7FF"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
)

// Model is the bubbletea model. It owns one selection machine.
type Model struct {
	graph   *routing.Graph
	machine *selection.Machine
	floors  []int
	floor   int // index into floors
	byFloor map[int][]int64
	cursor  int
	status  string
	failed  bool
}

// New builds a model over g, starting on the lowest floor.
func New(g *routing.Graph, opts ...routing.Option) Model {
	byFloor := make(map[int][]int64)
	for _, id := range g.VertexIDs() {
		v, _ := g.Vertex(id)
		byFloor[v.Floor] = append(byFloor[v.Floor], id)
	}
	floors := make([]int, 0, len(byFloor))
	for f := range byFloor {
		floors = append(floors, f)
	}
	sort.Ints(floors)

	return Model{
		graph:   g,
		machine: selection.New(selection.GraphFinder{Graph: g, Options: opts}),
		floors:  floors,
		byFloor: byFloor,
		status:  "pick a start point",
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.current())-1 {
			m.cursor++
		}
	case "left", "h", "[":
		if m.floor > 0 {
			m.floor--
			m.cursor = 0
		}
	case "right", "l", "]":
		if m.floor < len(m.floors)-1 {
			m.floor++
			m.cursor = 0
		}
	case "enter", " ":
		if id, ok := m.Cursor(); ok {
			m.apply(m.machine.Select(id))
		}
	case "r":
		m.apply(m.machine.Reset(), nil)
	}
	return m, nil
}

func (m *Model) apply(events []selection.Event, err error) {
	if err != nil {
		m.status = "route failed: " + err.Error()
		m.failed = true
		return
	}
	m.failed = false
	if len(events) == 0 {
		m.status = "deselect an endpoint first"
		return
	}
	m.status = describe(events[len(events)-1])
}

func describe(ev selection.Event) string {
	switch ev.Kind {
	case selection.EventStartSelected:
		return fmt.Sprintf("start point %d selected", ev.VertexID)
	case selection.EventEndSelected:
		return fmt.Sprintf("end point %d selected", ev.VertexID)
	case selection.EventStartDeselected:
		return "start point deselected"
	case selection.EventEndDeselected:
		return "end point deselected"
	case selection.EventPathFound:
		return fmt.Sprintf("route %d → %d: %.1f over %d hops", ev.StartID, ev.EndID, ev.Path.TotalDistance, ev.Path.Hops())
	case selection.EventPathCleared:
		return "route cleared"
	case selection.EventNoRoute:
		if errors.Is(ev.Err, routing.ErrUnknownVertex) {
			return "unknown point"
		}
		return fmt.Sprintf("no route between %d and %d", ev.StartID, ev.EndID)
	case selection.EventReset:
		return "selection cleared"
	default:
		return string(ev.Kind)
	}
}

// Cursor returns the vertex under the cursor.
func (m Model) Cursor() (int64, bool) {
	ids := m.current()
	if m.cursor < 0 || m.cursor >= len(ids) {
		return 0, false
	}
	return ids[m.cursor], true
}

// Selection exposes the machine state.
func (m Model) Selection() selection.Snapshot {
	return m.machine.Snapshot()
}

// Status is the last status line shown.
func (m Model) Status() string {
	return m.status
}

func (m Model) current() []int64 {
	if len(m.floors) == 0 {
		return nil
	}
	return m.byFloor[m.floors[m.floor]]
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("mapnav"))
	b.WriteString("\n")
	if len(m.floors) == 0 {
		b.WriteString("empty map\n")
		return b.String()
	}

	b.WriteString(floorStyle.Render(fmt.Sprintf("floor %d (%d/%d)", m.floors[m.floor], m.floor+1, len(m.floors))))
	b.WriteString("\n\n")

	snap := m.machine.Snapshot()
	onPath := make(map[int64]bool)
	if snap.Path != nil {
		for _, id := range snap.Path.VertexIDs {
			onPath[id] = true
		}
	}

	for i, id := range m.current() {
		v, _ := m.graph.Vertex(id)
		line := fmt.Sprintf("%6d  (%7.1f, %7.1f)  %d links", id, v.X, v.Y, len(m.graph.Neighbors(id)))
		switch {
		case snap.HasStart && snap.StartID == id:
			line = startStyle.Render("S " + line)
		case snap.HasEnd && snap.EndID == id:
			line = endStyle.Render("E " + line)
		case onPath[id]:
			line = pathStyle.Render("· " + line)
		default:
			line = "  " + line
		}
		if i == m.cursor {
			line = cursorStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.failed {
		b.WriteString(errorStyle.Render(m.status))
	} else {
		b.WriteString(m.status)
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move  ←/→ floor  enter select  r reset  q quit"))
	b.WriteString("\n")
	return b.String()
}
