package eventfeed

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/archflow/archengine/internal/domain/event"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("245")).
			PaddingBottom(1).
			MarginBottom(1)

	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	domainStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1)
)

// renderFeed lays out up to height-4 of the most recent rows, newest last,
// matching a scrolling log view rather than the dashboard's list-cursor
// navigation (there is nothing here to select).
func renderFeed(rows []event.ArchflowEvent, height int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("archengine — live event feed (q to quit)"))
	b.WriteString("\n")

	visible := rows
	capacity := height - 4
	if capacity < 1 {
		capacity = 1
	}
	if len(visible) > capacity {
		visible = visible[len(visible)-capacity:]
	}

	for _, evt := range visible {
		style := domainStyle
		if evt.Type == event.TypeError || evt.Type == event.TypeToolError {
			style = errorStyle
		}
		line := timeStyle.Render(formatTimestamp(evt.Timestamp)) + " " +
			style.Render(string(evt.Domain)+"/"+string(evt.Type))
		if evt.ExecutionID != "" {
			line += " " + timeStyle.Render("flow="+evt.ExecutionID)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render("events shown: " + strconv.Itoa(len(rows))))
	return b.String()
}
