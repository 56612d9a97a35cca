package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	tab     key.Binding
	back    key.Binding
	login   key.Binding
	logout  key.Binding
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch list")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		login:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log in")),
		logout:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "log out")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.tab},
		{k.back, k.refresh, k.logout},
		{k.login, k.quit},
	}
}
