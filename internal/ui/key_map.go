package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	toggle  key.Binding
	submit  key.Binding
	all     key.Binding
	remove  key.Binding
	cancel  key.Binding
	fetch   key.Binding
	clear   key.Binding
	switchV key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "download selected")),
		all:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "download all ready")),
		remove:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		cancel:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel job")),
		fetch:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fetch archive")),
		clear:   key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear finished")),
		switchV: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.switchV, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.submit, k.all, k.remove},
		{k.cancel, k.fetch, k.clear},
		{k.switchV, k.quit},
	}
}
