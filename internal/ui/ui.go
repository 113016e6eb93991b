// Package ui provides the Bubble Tea terminal interface for CaptionCraft.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI and blocks until the user quits or the context is
// cancelled.
func Run(opts Options) error {
	if opts.Engine == nil || opts.Mutator == nil || opts.Session == nil {
		return fmt.Errorf("ui requires engine, mutator, and session")
	}

	model := NewModel(opts)
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(opts.Context),
	)
	_, err := program.Run()
	if err != nil && opts.Context != nil && opts.Context.Err() != nil {
		// Shutdown by signal is a clean exit, not a failure.
		return nil
	}
	return err
}
