package ui

import "strings"

var helpSections = []struct {
	title string
	keys  [][2]string
}{
	{
		title: "Navigation",
		keys: [][2]string{
			{"j/k, ↓/↑", "move selection"},
			{"g/G", "first/last device"},
			{"ctrl+d/ctrl+u", "jump 5 devices"},
			{"tab, h/l, ←/→", "switch platform panel"},
		},
	},
	{
		title: "Devices",
		keys: [][2]string{
			{"enter, s", "start or stop the selected device"},
			{"x", "stop the selected device"},
			{"c", "create a new device"},
			{"d", "delete the selected device"},
			{"w", "wipe the selected device's data"},
			{"r", "refresh both device lists"},
		},
	},
	{
		title: "Logs",
		keys: [][2]string{
			{"L", "toggle fullscreen log view"},
			{"f", "cycle the level filter"},
			{"j/k, g/G", "scroll (fullscreen view)"},
		},
	},
	{
		title: "Other",
		keys: [][2]string{
			{"t", "switch theme"},
			{"esc", "dismiss notifications"},
			{"?", "this help"},
			{"q, ctrl+c", "quit"},
		},
	},
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("vmdeck keys"))
	b.WriteString("\n")

	for _, section := range helpSections {
		b.WriteString("\n")
		b.WriteString(m.styles.AccentText.Render(section.title))
		b.WriteString("\n")
		for _, k := range section.keys {
			b.WriteString(m.styles.InfoText.Render("  " + pad(k[0], 16)))
			b.WriteString(m.styles.Text.Render(k[1]))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.styles.MutedText.Render("press any key to close"))

	return m.styles.Modal.Render(b.String())
}

func pad(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}
