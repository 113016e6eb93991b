package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding
	Refresh    key.Binding
	Logout     key.Binding

	// Navigation
	Up          key.Binding
	Down        key.Binding
	NextCaption key.Binding
	PrevCaption key.Binding

	// Feed actions
	LikePost       key.Binding
	LikeCaption    key.Binding
	ComposeCaption key.Binding
	ShowComments   key.Binding
	ComposeComment key.Binding

	// Input
	Confirm key.Binding
}

// defaultKeyMap returns the default key bindings.
func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close comments / cancel input"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh feed"),
		),
		Logout: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "Log out"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "Previous post"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "Next post"),
		),
		NextCaption: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "Next caption"),
		),
		PrevCaption: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "Previous caption"),
		),

		LikePost: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Like/unlike post"),
		),
		LikeCaption: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Like/unlike caption"),
		),
		ComposeCaption: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Write caption"),
		),
		ShowComments: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Show caption comments"),
		),
		ComposeComment: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "Write comment"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}
