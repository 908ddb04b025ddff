package main

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/muesli/reflow/wordwrap"
)

const (
	AgentName  = "Radio"
	PlayerName = "You"
)

// transcript renders the message log as plain text for the clipboard.
func transcript(title string, entries []state.LogEntry) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	for _, e := range entries {
		switch {
		case e.IsSessionMarker():
			fmt.Fprintf(&b, "\n-- %s --\n", e.SessionLabel())
		case e.Sender == state.SenderPlayer:
			fmt.Fprintf(&b, "%s: %s\n", PlayerName, e.Text)
		case e.Sender == state.SenderSystem:
			fmt.Fprintf(&b, "* %s\n", e.Text)
		default:
			fmt.Fprintf(&b, "%s: %s\n", AgentName, e.Text)
		}
	}
	return b.String()
}

// formatEntry renders one log entry for the chat viewport, wrapped to width.
func formatEntry(e state.LogEntry, width int) string {
	switch {
	case e.IsSessionMarker():
		label := " " + e.SessionLabel() + " "
		pad := max((width-len(label))/2, 2)
		return separatorStyle.Render(strings.Repeat("─", pad) + label + strings.Repeat("─", pad))

	case e.Sender == state.SenderPlayer:
		prefix := PlayerName + ": "
		return userStyle.Render(prefix) + indent(wordwrap.String(e.Text, width-len(prefix)), len(prefix))

	case e.Sender == state.SenderSystem:
		return systemStyle.Render(wordwrap.String(e.Text, width))

	default:
		prefix := AgentName + ": "
		return narratorStyle.Render(prefix) + indent(wordwrap.String(e.Text, width-len(prefix)), len(prefix))
	}
}

// indent aligns continuation lines under the first one.
func indent(s string, n int) string {
	return strings.ReplaceAll(s, "\n", "\n"+strings.Repeat(" ", n))
}
