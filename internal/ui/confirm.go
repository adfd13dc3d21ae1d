package ui

import (
	"fmt"
	"strings"

	"github.com/mwfern/vmdeck/internal/state"
)

func (m Model) renderConfirm() string {
	c := m.snapshot.Confirm
	if c == nil {
		return ""
	}

	var b strings.Builder

	name := c.DeviceName
	if name == "" {
		name = c.DeviceID
	}
	if c.Kind == state.OpWipe {
		b.WriteString(m.styles.Title.Render("Wipe device data"))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Text.Render(fmt.Sprintf("Erase all user data on %q?", name)))
		b.WriteString("\n")
		b.WriteString(m.styles.MutedText.Render("The device itself is kept."))
	} else {
		b.WriteString(m.styles.Title.Render("Delete device"))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Text.Render(fmt.Sprintf("Permanently delete %q?", name)))
		b.WriteString("\n")
		b.WriteString(m.styles.DangerText.Render("This cannot be undone."))
	}

	b.WriteString("\n\n")
	b.WriteString(m.styles.MutedText.Render("y/enter confirm · n/esc cancel"))

	return m.styles.Modal.Render(b.String())
}
