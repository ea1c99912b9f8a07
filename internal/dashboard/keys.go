package dashboard

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "redraw"),
	),
}

func (k keyMap) help() string {
	q, r := k.Quit.Help(), k.Refresh.Help()
	return q.Key + ": " + q.Desc + " | " + r.Key + ": " + r.Desc
}
