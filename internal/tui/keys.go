package tui

import "github.com/charmbracelet/bubbles/key"

// BrowserKeys are the bindings of the catalog browser.
type BrowserKeys struct {
	Quit    key.Binding
	Details key.Binding
	Feature key.Binding
	Image   key.Binding
	Refresh key.Binding
}

// NewBrowserKeys creates the browser key bindings.
func NewBrowserKeys() BrowserKeys {
	return BrowserKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Details: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Feature: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle featured"),
		),
		Image: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "replace image"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

// ShortHelp returns the bindings shown under the list.
func (k BrowserKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Feature, k.Image, k.Refresh}
}

// FullHelp returns every browser binding.
func (k BrowserKeys) FullHelp() []key.Binding {
	return []key.Binding{k.Details, k.Feature, k.Image, k.Refresh, k.Quit}
}
