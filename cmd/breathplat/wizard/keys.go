package wizard

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the wizard's key bindings. Plain keys go to the focused form
// input, so every action uses a control or function key.
type keyMap struct {
	Run      key.Binding
	Continue key.Binding
	Skip     key.Binding
	Back     key.Binding
	GoTo     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Dismiss  key.Binding
	Scroll   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Run: key.NewBinding(
			key.WithKeys("ctrl+r", "enter"),
			key.WithHelp("enter/ctrl+r", "run step"),
		),
		Continue: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "continue"),
		),
		Skip: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "skip"),
		),
		Back: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("ctrl+b", "back"),
		),
		GoTo: key.NewBinding(
			key.WithKeys("f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9"),
			key.WithHelp("f1-f9", "go to step"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "dismiss error"),
		),
		Scroll: key.NewBinding(
			key.WithKeys("pgup", "pgdown"),
			key.WithHelp("pgup/pgdn", "scroll result"),
		),
		Help: key.NewBinding(
			key.WithKeys("f10"),
			key.WithHelp("f10", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Continue, k.Skip, k.Back, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Continue, k.Skip, k.Back, k.GoTo},
		{k.Next, k.Prev, k.Scroll, k.Dismiss},
		{k.Help, k.Quit},
	}
}

// gotoIndex maps f1..f9 to step indexes.
func gotoIndex(s string) int {
	if len(s) == 2 && s[0] == 'f' && s[1] >= '1' && s[1] <= '9' {
		return int(s[1] - '1')
	}
	return -1
}
