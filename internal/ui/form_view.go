package ui

import (
	"fmt"
	"strings"

	"github.com/mwfern/vmdeck/internal/state"
)

func (m Model) renderForm() string {
	f := m.snapshot.Form
	if f == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Create %s device", f.Platform.Title())))
	b.WriteString("\n\n")

	if f.LoadingOptions {
		b.WriteString(m.spinner.View() + m.styles.MutedText.Render("loading device types and system images..."))
		b.WriteString("\n\n")
	}

	for _, field := range f.Fields {
		b.WriteString(m.renderFormField(f, field))
		b.WriteString("\n")
	}

	if f.Err != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.DangerText.Render(f.Err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.MutedText.Render("tab next · ←/→ change · enter create · esc cancel"))

	return m.styles.Modal.Render(b.String())
}

func (m Model) renderFormField(f *state.FormSnapshot, field state.Field) string {
	focused := field == f.Field

	var value string
	cycles := false
	switch field {
	case state.FieldVersion:
		value, cycles = f.Version, true
		if value == "" {
			value = "-"
		}
	case state.FieldCategory:
		value, cycles = f.Category, true
	case state.FieldDeviceType:
		value, cycles = f.DeviceType, true
		if value == "" {
			value = "-"
		}
	case state.FieldRAM:
		value = f.RAM
	case state.FieldStorage:
		value = f.Storage
	case state.FieldName:
		value = f.Name
	}

	if cycles && focused {
		value = "◂ " + value + " ▸"
	}
	if !cycles && focused {
		value += "▏"
	}

	label := fmt.Sprintf("%-14s", field.Label())
	if focused {
		return m.styles.AccentText.Render("▸ "+label) + m.styles.Text.Render(value)
	}
	return m.styles.MutedText.Render("  "+label) + m.styles.Text.Render(value)
}
