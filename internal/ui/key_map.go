package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	detach key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		detach: key.NewBinding(key.WithKeys("d", "esc"), key.WithHelp("d", "detach")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.detach, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.detach, k.quit}}
}
