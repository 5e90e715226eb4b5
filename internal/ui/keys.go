package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keyboard bindings of the browse view. Text inputs
// (search, date, photo paths) take over the keyboard while open.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding

	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	NextRegion  key.Binding
	PrevRegion  key.Binding
	VisitedOnly key.Binding
	Search      key.Binding

	Toggle      key.Binding
	EditDate    key.Binding
	AddPhotos   key.Binding
	NextPhoto   key.Binding
	PrevPhoto   key.Binding
	RemovePhoto key.Binding
	RetrySave   key.Binding

	RefreshFacts key.Binding

	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
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

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Scroll detail up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Scroll detail down"),
		),

		NextRegion: key.NewBinding(
			key.WithKeys("tab", "l"),
			key.WithHelp("tab", "Next region"),
		),
		PrevRegion: key.NewBinding(
			key.WithKeys("shift+tab", "h"),
			key.WithHelp("shift+tab", "Previous region"),
		),
		VisitedOnly: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Visited only"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),

		Toggle: key.NewBinding(
			key.WithKeys(" ", "space", "enter"),
			key.WithHelp("space", "Toggle visited"),
		),
		EditDate: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Set visit date"),
		),
		AddPhotos: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Add photos"),
		),
		NextPhoto: key.NewBinding(
			key.WithKeys("]", "right"),
			key.WithHelp("]", "Next photo"),
		),
		PrevPhoto: key.NewBinding(
			key.WithKeys("[", "left"),
			key.WithHelp("[", "Previous photo"),
		),
		RemovePhoto: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove photo"),
		),
		RetrySave: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Retry save"),
		),

		RefreshFacts: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Refetch facts"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.EditDate, k.AddPhotos, k.Search, k.Help, k.Quit}
}

// FullHelp returns key bindings grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageDown, k.HalfPageUp},
		{k.NextRegion, k.PrevRegion, k.VisitedOnly, k.Search},
		{k.Toggle, k.EditDate, k.AddPhotos, k.PrevPhoto, k.NextPhoto, k.RemovePhoto, k.RetrySave},
		{k.RefreshFacts, k.CycleTheme, k.Help, k.Quit},
	}
}
