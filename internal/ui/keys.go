package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwfern/vmdeck/internal/state"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c quits from anywhere, even inside a modal.
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.snapshot.Mode {
	case state.ModeCreate:
		return m.handleCreateKey(msg)
	case state.ModeConfirmDelete, state.ModeConfirmWipe:
		return m.handleConfirmKey(msg)
	case state.ModeHelp:
		return m.handleHelpKey(msg)
	case state.ModeLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleBrowseKey(msg)
	}
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()

	case "j", "down":
		m.store.SelectNext()
		m.actions.SelectionChanged()
	case "k", "up":
		m.store.SelectPrev()
		m.actions.SelectionChanged()
	case "g", "home":
		m.store.SelectFirst()
		m.actions.SelectionChanged()
	case "G", "end":
		m.store.SelectLast()
		m.actions.SelectionChanged()
	case "ctrl+d":
		m.store.MoveBy(5)
		m.actions.SelectionChanged()
	case "ctrl+u":
		m.store.MoveBy(-5)
		m.actions.SelectionChanged()

	case "tab", "h", "l", "left", "right":
		m.store.SwitchPanel()
		m.actions.SelectionChanged()

	case "enter", "s":
		if d, ok := m.snapshot.SelectedDevice(); ok {
			if d.Running() {
				m.actions.Stop(d.Platform, d.ID, d.Name)
			} else {
				m.actions.Start(d.Platform, d.ID, d.Name)
			}
		}

	case "x":
		if d, ok := m.snapshot.SelectedDevice(); ok && d.Running() {
			m.actions.Stop(d.Platform, d.ID, d.Name)
		}

	case "c":
		m.actions.OpenCreateForm()

	case "d":
		m.store.BeginConfirm(state.OpDelete)

	case "w":
		m.store.BeginConfirm(state.OpWipe)

	case "r":
		m.actions.RefreshAll()
		m.store.NotifyInfo("refreshing device lists")

	case "L":
		m.store.ToggleFullscreenLogs()

	case "f":
		m.cycleLogFilter()

	case "t":
		m.cycleTheme()

	case "?":
		m.store.OpenHelp()

	case "esc":
		m.store.DismissNotifications()
	}

	m.refresh()
	return m, nil
}

func (m Model) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.store.Dismiss()

	case "enter":
		m.actions.SubmitCreate()

	case "tab", "down":
		m.store.WithForm(func(f *state.Form) { f.NextField() })
	case "shift+tab", "up":
		m.store.WithForm(func(f *state.Form) { f.PrevField() })

	case "left":
		m.store.WithForm(func(f *state.Form) { f.CycleValue(-1) })
	case "right":
		m.store.WithForm(func(f *state.Form) { f.CycleValue(1) })

	case "backspace":
		m.store.WithForm(func(f *state.Form) { f.Backspace() })

	default:
		if msg.Type == tea.KeyRunes {
			m.store.WithForm(func(f *state.Form) {
				for _, r := range msg.Runes {
					f.InsertRune(r)
				}
			})
		}
	}

	m.refresh()
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		if c, ok := m.store.ConfirmTarget(); ok {
			m.store.Dismiss()
			if c.Kind == state.OpWipe {
				m.actions.Wipe(c.Platform, c.DeviceID, c.DeviceName)
			} else {
				m.actions.Delete(c.Platform, c.DeviceID, c.DeviceName)
			}
		}
	case "n", "esc", "q":
		m.store.Dismiss()
	}

	m.refresh()
	return m, nil
}

func (m Model) handleHelpKey(tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help.
	m.store.Dismiss()
	m.refresh()
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.store.ScrollLogs(1)
	case "k", "up":
		m.store.ScrollLogs(-1)
	case "ctrl+d":
		m.store.ScrollLogs(10)
	case "ctrl+u":
		m.store.ScrollLogs(-10)
	case "g", "home":
		m.store.ScrollLogs(-1 << 30)
	case "G", "end":
		m.store.ScrollLogs(1 << 30)
	case "f":
		m.cycleLogFilter()
	case "L", "esc", "q":
		m.store.ToggleFullscreenLogs()
	}

	m.refresh()
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.savePrefs()
	m.quitting = true
	return m, tea.Quit
}

// logFilterCycle is the order the f key walks through.
var logFilterCycle = []string{"", "error", "warn", "info", "debug"}

func (m *Model) cycleLogFilter() {
	current := m.snapshot.LogFilter
	for i, level := range logFilterCycle {
		if level == current {
			m.store.SetLogFilter(logFilterCycle[(i+1)%len(logFilterCycle)])
			return
		}
	}
	m.store.SetLogFilter("")
}
