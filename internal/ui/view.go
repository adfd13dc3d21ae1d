package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mwfern/vmdeck/internal/device"
	"github.com/mwfern/vmdeck/internal/state"
)

const minWidth = 60

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width > 0 && m.width < minWidth {
		return m.styles.WarningText.Render("terminal too narrow, need at least 60 columns")
	}

	switch m.snapshot.Mode {
	case state.ModeCreate:
		return m.overlay(m.renderForm())
	case state.ModeConfirmDelete, state.ModeConfirmWipe:
		return m.overlay(m.renderConfirm())
	case state.ModeHelp:
		return m.overlay(m.renderHelp())
	case state.ModeLogs:
		return m.renderFullscreenLogs()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderPanels())
	b.WriteString("\n")
	b.WriteString(m.renderDetail())
	b.WriteString("\n")
	b.WriteString(m.renderLogs(m.logPaneHeight()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// overlay centers a modal over a blank alt-screen frame.
func (m Model) overlay(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render("vmdeck")
	sub := m.styles.MutedText.Render("  android emulators and ios simulators")

	note := m.renderNotification()
	left := title + sub
	if note == "" {
		return left
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(note)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + note
}

func (m Model) renderNotification() string {
	n := latestNotification(m.snapshot.Notifications)
	if n == nil {
		return ""
	}
	switch n.Level {
	case state.NoteSuccess:
		return m.styles.SuccessText.Render("✓ " + n.Message)
	case state.NoteError:
		return m.styles.DangerText.Render("✗ " + n.Message)
	case state.NoteWarning:
		return m.styles.WarningText.Render("! " + n.Message)
	default:
		return m.styles.InfoText.Render("· " + n.Message)
	}
}

func latestNotification(notes []state.Notification) *state.Notification {
	if len(notes) == 0 {
		return nil
	}
	return &notes[len(notes)-1]
}

func (m Model) renderPanels() string {
	panelWidth := m.panelWidth()
	android := m.renderPanel(m.snapshot.Panels[device.Android], panelWidth)
	ios := m.renderPanel(m.snapshot.Panels[device.IOS], panelWidth)
	return lipgloss.JoinHorizontal(lipgloss.Top, android, ios)
}

func (m Model) panelWidth() int {
	if m.width == 0 {
		return 40
	}
	return m.width/2 - 2
}

func (m Model) renderPanel(panel state.PanelSnapshot, width int) string {
	focused := panel.Platform == m.snapshot.Active

	var b strings.Builder
	header := m.styles.Title.Render(panel.Platform.Title())
	count := m.styles.MutedText.Render(fmt.Sprintf(" (%d)", len(panel.Devices)))
	b.WriteString(header + count + "\n")

	switch {
	case panel.LastErr != "":
		b.WriteString(m.styles.DangerText.Render("⚠ " + panel.LastErr))
	case panel.Loading:
		b.WriteString(m.spinner.View() + m.styles.MutedText.Render("loading..."))
	case len(panel.Devices) == 0:
		b.WriteString(m.styles.MutedText.Render("no devices; press c to create one"))
	default:
		for i, d := range panel.Devices {
			b.WriteString(m.renderDeviceRow(d, focused && i == panel.Selected, width-4))
			if i < len(panel.Devices)-1 {
				b.WriteString("\n")
			}
		}
	}

	style := m.styles.Panel
	if focused {
		style = m.styles.PanelFocus
	}
	return style.Width(width).Render(b.String())
}

func (m Model) renderDeviceRow(d device.Device, selected bool, width int) string {
	badge := m.styles.StatusStyle(d.Status.String()).Render("●")
	name := d.Name
	if name == "" {
		name = d.ID
	}

	suffix := ""
	if m.snapshot.Pending != nil && m.snapshot.Pending.DeviceID == d.ID {
		suffix = " " + m.styles.WarningText.Render("…"+m.snapshot.Pending.Kind.String())
	} else if d.Status == device.StatusError && d.ErrorDetail != "" {
		suffix = " " + m.styles.DangerText.Render("!")
	}

	meta := ""
	if d.APILevel > 0 {
		meta = fmt.Sprintf("API %d", d.APILevel)
	} else if d.RuntimeVersion != "" {
		meta = d.RuntimeVersion
	}
	if meta != "" {
		meta = m.styles.FaintText.Render(" " + meta)
	}

	row := fmt.Sprintf("%s %s%s%s", badge, name, meta, suffix)
	if selected {
		pointer := m.styles.AccentText.Render("▸ ")
		return pointer + m.styles.Selected.Render(truncate(name, width-10)) + meta + suffix + " " + badge
	}
	return "  " + truncate(row, width)
}

func (m Model) renderDetail() string {
	width := m.contentWidth()
	d := m.snapshot.Detail

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Details") + "\n")

	sel, ok := m.snapshot.SelectedDevice()
	switch {
	case !ok:
		b.WriteString(m.styles.MutedText.Render("nothing selected"))
	case d == nil:
		b.WriteString(m.styles.MutedText.Render("loading " + sel.Name + "..."))
	default:
		rows := []struct{ k, v string }{
			{"Name", d.Name},
			{"Status", d.Status.String()},
			{"Type", d.DeviceType},
			{"Runtime", d.RuntimeVersion},
			{"RAM", sizeMB(d.RAMSizeMB)},
			{"Storage", sizeMB(d.StorageSizeMB)},
			{"Resolution", d.Resolution},
			{"DPI", d.DPI},
			{"Image", d.SystemImage},
			{"Path", d.Path},
		}
		var parts []string
		for _, r := range rows {
			if r.v == "" {
				continue
			}
			parts = append(parts,
				m.styles.MutedText.Render(r.k+": ")+m.styles.Text.Render(r.v))
		}
		b.WriteString(strings.Join(parts, "\n"))
	}

	return m.styles.Panel.Width(width).Render(b.String())
}

func (m Model) renderLogs(height int) string {
	width := m.contentWidth()

	var b strings.Builder
	title := "Logs"
	if tag, ok := logTagName(m.snapshot); ok {
		title = "Logs · " + tag
	}
	if m.snapshot.LogFilter != "" {
		title += " [" + m.snapshot.LogFilter + "]"
	}
	b.WriteString(m.styles.Title.Render(title) + "\n")
	b.WriteString(m.renderLogLines(height))

	return m.styles.Panel.Width(width).Render(b.String())
}

func (m Model) renderLogLines(height int) string {
	lines := m.snapshot.FilteredLogs()
	if len(lines) == 0 {
		if _, ok := logTagName(m.snapshot); ok {
			return m.styles.MutedText.Render("waiting for output...")
		}
		return m.styles.MutedText.Render("select a running device to stream its logs")
	}

	if height < 1 {
		height = 1
	}
	end := m.snapshot.LogScroll + 1
	if end > len(lines) {
		end = len(lines)
	}
	start := end - height
	if start < 0 {
		start = 0
	}

	var out []string
	for _, l := range lines[start:end] {
		out = append(out, m.renderLogLine(l))
	}
	return strings.Join(out, "\n")
}

func (m Model) renderLogLine(l device.LogLine) string {
	var level string
	switch l.Level {
	case "error":
		level = m.styles.DangerText.Render("E")
	case "warn":
		level = m.styles.WarningText.Render("W")
	case "debug":
		level = m.styles.FaintText.Render("D")
	default:
		level = m.styles.InfoText.Render("I")
	}
	msg := truncate(l.Message, m.contentWidth()-6)
	return level + " " + m.styles.Text.Render(msg)
}

func (m Model) renderFullscreenLogs() string {
	height := m.height - 4
	if height < 5 {
		height = 5
	}
	var b strings.Builder
	b.WriteString(m.renderLogs(height))
	b.WriteString("\n")
	b.WriteString(m.styles.StatusBar.Render("j/k scroll · g/G top/bottom · f filter · L/esc back"))
	return b.String()
}

func logTagName(snap state.Snapshot) (string, bool) {
	if snap.LogTag.ID == "" {
		return "", false
	}
	for _, d := range snap.Panels[snap.LogTag.Platform].Devices {
		if d.ID == snap.LogTag.ID {
			return d.Name, true
		}
	}
	return snap.LogTag.ID, true
}

func (m Model) renderStatusBar() string {
	help := "j/k move · tab switch · enter start/stop · c create · d delete · w wipe · L logs · ? help · q quit"
	if m.snapshot.Pending != nil {
		help = fmt.Sprintf("%s%s %s in progress...",
			m.spinner.View(), m.snapshot.Pending.Kind, m.snapshot.Pending.DeviceID)
	}
	bar := m.styles.StatusBar.Render(help)
	if m.width > 0 {
		bar = m.styles.StatusBar.Width(m.width).Render(help)
	}
	return bar
}

func (m Model) contentWidth() int {
	if m.width == 0 {
		return 80
	}
	return m.width - 2
}

func (m Model) logPaneHeight() int {
	if m.height == 0 {
		return 8
	}
	// Header, status bar, panels and detail take the rest.
	h := m.height / 4
	if h < 4 {
		h = 4
	}
	return h
}

func sizeMB(mb int) string {
	if mb <= 0 {
		return ""
	}
	if mb >= 1024 && mb%1024 == 0 {
		return fmt.Sprintf("%d GB", mb/1024)
	}
	return fmt.Sprintf("%d MB", mb)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
