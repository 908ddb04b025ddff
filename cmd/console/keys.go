package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Pick     key.Binding // Digit shortcut for choices
	Menu     key.Binding
	Continue key.Binding
	NewGame  key.Binding
	Quit     key.Binding
	ForceQ   key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Pick:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "choose")),
	Menu:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "menu")),
	Continue: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "continue")),
	NewGame:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new game")),
	Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "save & quit")),
	ForceQ:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	ScrollUp: key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	ScrollDn: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
}

// helpLine renders the short help for a set of bindings.
func helpLine(bindings ...key.Binding) string {
	var out string
	for i, b := range bindings {
		if i > 0 {
			out += " • "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}
