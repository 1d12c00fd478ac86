// Package eventfeed is a small bubbletea TUI that subscribes to the
// engine's event bus (ports.EventPublisher) and renders the streaming
// envelope feed live, reusing the teacher's dashboard pattern
// (internal/tui/dashboard) for a new purpose: watching flow events
// instead of managing pipelines.
package eventfeed

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/archflow/archengine/internal/domain/event"
	"github.com/archflow/archengine/internal/ports"
)

// maxRows bounds how many events the feed keeps on screen; older entries
// scroll off rather than growing the model unboundedly for a long-running
// watch session.
const maxRows = 200

// eventMsg wraps one ArchflowEvent as a bubbletea message.
type eventMsg event.ArchflowEvent

// closedMsg signals the subscription channel was closed.
type closedMsg struct{}

// Model renders a scrolling feed of ArchflowEvents.
type Model struct {
	sub    <-chan event.ArchflowEvent
	rows   []event.ArchflowEvent
	width  int
	height int
	done   bool
}

// NewModel constructs a Model reading from sub.
func NewModel(sub <-chan event.ArchflowEvent) Model {
	return Model{sub: sub, width: 80, height: 24}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.sub)
}

func waitForEvent(sub <-chan event.ArchflowEvent) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-sub
		if !ok {
			return closedMsg{}
		}
		return eventMsg(evt)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	case eventMsg:
		m.rows = append(m.rows, event.ArchflowEvent(msg))
		if len(m.rows) > maxRows {
			m.rows = m.rows[len(m.rows)-maxRows:]
		}
		return m, waitForEvent(m.sub)
	case closedMsg:
		m.done = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.done {
		return ""
	}
	return renderFeed(m.rows, m.height)
}

// Run blocks until the user quits, ctx is cancelled, or the publisher
// closes the subscription, rendering every event published meanwhile.
func Run(ctx context.Context, publisher ports.EventPublisher) error {
	sub, unsubscribe := publisher.Subscribe(ctx)
	defer unsubscribe()

	program := tea.NewProgram(NewModel(sub))
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	_, err := program.Run()
	return err
}

func formatTimestamp(nanos int64) string {
	if nanos == 0 {
		return "--:--:--"
	}
	return time.Unix(0, nanos).Format("15:04:05")
}
