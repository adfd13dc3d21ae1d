package state

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mwfern/vmdeck/internal/device"
)

// Field identifies one input of the create-device form.
type Field int

const (
	FieldVersion Field = iota // API level on Android, runtime on iOS
	FieldCategory
	FieldDeviceType
	FieldRAM
	FieldStorage
	FieldName
)

// Label returns the display label for a field.
func (f Field) Label() string {
	switch f {
	case FieldVersion:
		return "System Image"
	case FieldCategory:
		return "Category"
	case FieldDeviceType:
		return "Device Type"
	case FieldRAM:
		return "RAM (MB)"
	case FieldStorage:
		return "Storage (MB)"
	case FieldName:
		return "Name"
	default:
		return "?"
	}
}

var (
	androidFields = []Field{FieldVersion, FieldCategory, FieldDeviceType, FieldRAM, FieldStorage, FieldName}
	iosFields     = []Field{FieldVersion, FieldDeviceType, FieldName}

	categories = []string{"all", "phone", "tablet", "wear", "tv", "automotive", "desktop"}
)

// Form is the create-device modal state. Field navigation is circular and
// submission is gated on validation, like list selection in the panels.
// Methods are not safe for concurrent use; the Store serializes access.
type Form struct {
	Platform device.Platform

	fields   []Field
	fieldIdx int

	Name    string
	RAM     string
	Storage string

	DeviceTypes []device.Option
	Versions    []device.Option

	typeIdx     int
	versionIdx  int
	categoryIdx int

	Err            string
	LoadingOptions bool

	nameEdited bool
}

// NewForm builds an empty form for the given platform with sizing defaults.
func NewForm(p device.Platform, defaultRAMMB, defaultStorageMB int) *Form {
	f := &Form{Platform: p, LoadingOptions: true}
	if p == device.Android {
		f.fields = androidFields
		if defaultRAMMB <= 0 {
			defaultRAMMB = 2048
		}
		if defaultStorageMB <= 0 {
			defaultStorageMB = 8192
		}
		f.RAM = strconv.Itoa(defaultRAMMB)
		f.Storage = strconv.Itoa(defaultStorageMB)
	} else {
		f.fields = iosFields
	}
	return f
}

// Field returns the currently focused field.
func (f *Form) Field() Field { return f.fields[f.fieldIdx] }

// NextField advances focus, wrapping past the last field.
func (f *Form) NextField() {
	f.fieldIdx = wrap(f.fieldIdx+1, len(f.fields))
}

// PrevField moves focus backwards, wrapping past the first field.
func (f *Form) PrevField() {
	f.fieldIdx = wrap(f.fieldIdx-1, len(f.fields))
}

// Category returns the active device category filter (Android only).
func (f *Form) Category() string { return categories[f.categoryIdx] }

// SetOptions installs backend-provided device types and versions and picks
// initial selections.
func (f *Form) SetOptions(opts device.CreateOptions) {
	f.DeviceTypes = opts.DeviceTypes
	f.Versions = opts.Versions
	f.typeIdx = 0
	f.versionIdx = 0
	f.LoadingOptions = false
	f.refreshName()
}

// FilteredTypes returns the device types matching the category filter.
func (f *Form) FilteredTypes() []device.Option {
	if f.Platform != device.Android || f.Category() == "all" {
		return f.DeviceTypes
	}
	needle := f.Category()
	var out []device.Option
	for _, opt := range f.DeviceTypes {
		haystack := strings.ToLower(opt.Display + " " + opt.ID)
		match := strings.Contains(haystack, needle)
		if !match && needle == "phone" {
			// Phones are the unlabeled default in avdmanager output.
			match = !strings.Contains(haystack, "tablet") &&
				!strings.Contains(haystack, "wear") &&
				!strings.Contains(haystack, "tv") &&
				!strings.Contains(haystack, "auto") &&
				!strings.Contains(haystack, "desktop") &&
				!strings.Contains(haystack, "fold")
		}
		if match {
			out = append(out, opt)
		}
	}
	return out
}

// SelectedType returns the focused device type option.
func (f *Form) SelectedType() (device.Option, bool) {
	types := f.FilteredTypes()
	if len(types) == 0 {
		return device.Option{}, false
	}
	return types[wrap(f.typeIdx, len(types))], true
}

// SelectedVersion returns the focused system image version option.
func (f *Form) SelectedVersion() (device.Option, bool) {
	if len(f.Versions) == 0 {
		return device.Option{}, false
	}
	return f.Versions[wrap(f.versionIdx, len(f.Versions))], true
}

// CycleValue moves the selection on the focused field by delta, wrapping
// circularly. On text fields it is a no-op.
func (f *Form) CycleValue(delta int) {
	switch f.Field() {
	case FieldVersion:
		if n := len(f.Versions); n > 0 {
			f.versionIdx = wrap(f.versionIdx+delta, n)
			f.refreshName()
		}
	case FieldCategory:
		f.categoryIdx = wrap(f.categoryIdx+delta, len(categories))
		f.typeIdx = 0
		f.refreshName()
	case FieldDeviceType:
		if n := len(f.FilteredTypes()); n > 0 {
			f.typeIdx = wrap(f.typeIdx+delta, n)
			f.refreshName()
		}
	}
}

// InsertRune appends a character to the focused text field. Sizing fields
// accept digits only.
func (f *Form) InsertRune(r rune) {
	switch f.Field() {
	case FieldName:
		if len(f.Name) < device.MaxNameLength {
			f.Name += string(r)
			f.nameEdited = true
		}
	case FieldRAM:
		if unicode.IsDigit(r) && len(f.RAM) < 5 {
			f.RAM += string(r)
		}
	case FieldStorage:
		if unicode.IsDigit(r) && len(f.Storage) < 6 {
			f.Storage += string(r)
		}
	}
}

// Backspace removes the last character of the focused text field.
func (f *Form) Backspace() {
	trim := func(s string) string {
		if s == "" {
			return s
		}
		return s[:len(s)-1]
	}
	switch f.Field() {
	case FieldName:
		f.Name = trim(f.Name)
		f.nameEdited = true
	case FieldRAM:
		f.RAM = trim(f.RAM)
	case FieldStorage:
		f.Storage = trim(f.Storage)
	}
}

// refreshName regenerates the placeholder name from the current selections
// until the user edits the name by hand.
func (f *Form) refreshName() {
	if f.nameEdited {
		return
	}
	var parts []string
	if opt, ok := f.SelectedType(); ok {
		words := strings.Fields(opt.Display)
		if len(words) > 3 {
			words = words[:3]
		}
		parts = append(parts, words...)
	}
	if opt, ok := f.SelectedVersion(); ok {
		display := opt.Display
		if strings.HasPrefix(display, "iOS") {
			// "iOS 17.0" -> "iOS 17"
			display = strings.SplitN(display, ".", 2)[0]
		} else if strings.HasPrefix(display, "API") {
			words := strings.Fields(display)
			if len(words) > 2 {
				words = words[:2]
			}
			display = strings.Join(words, " ")
		}
		parts = append(parts, display)
	}
	f.Name = strings.Join(parts, " ")
}

// Config validates the form and returns the backend creation config.
func (f *Form) Config() (device.CreateConfig, error) {
	typeOpt, okType := f.SelectedType()
	if !okType {
		return device.CreateConfig{}, fmt.Errorf("no device type available")
	}
	versionOpt, okVersion := f.SelectedVersion()
	if !okVersion {
		return device.CreateConfig{}, fmt.Errorf("no system image available")
	}

	cfg := device.CreateConfig{
		Name:       strings.TrimSpace(f.Name),
		DeviceType: typeOpt.ID,
		Version:    versionOpt.ID,
	}
	if f.Platform == device.Android {
		ram, err := strconv.Atoi(f.RAM)
		if err != nil {
			return device.CreateConfig{}, fmt.Errorf("RAM must be a number")
		}
		storage, err := strconv.Atoi(f.Storage)
		if err != nil {
			return device.CreateConfig{}, fmt.Errorf("storage must be a number")
		}
		cfg.RAMSizeMB = ram
		cfg.StorageSizeMB = storage
	}
	if err := cfg.Validate(); err != nil {
		return device.CreateConfig{}, err
	}
	return cfg, nil
}

// FormSnapshot is the renderer's read-only view of the form.
type FormSnapshot struct {
	Platform       device.Platform
	Field          Field
	Fields         []Field
	Name           string
	RAM            string
	Storage        string
	Category       string
	DeviceType     string
	Version        string
	Err            string
	LoadingOptions bool
}

func (f *Form) snapshot() *FormSnapshot {
	snap := &FormSnapshot{
		Platform:       f.Platform,
		Field:          f.Field(),
		Fields:         append([]Field(nil), f.fields...),
		Name:           f.Name,
		RAM:            f.RAM,
		Storage:        f.Storage,
		Category:       f.Category(),
		Err:            f.Err,
		LoadingOptions: f.LoadingOptions,
	}
	if opt, ok := f.SelectedType(); ok {
		snap.DeviceType = opt.Display
	}
	if opt, ok := f.SelectedVersion(); ok {
		snap.Version = opt.Display
	}
	return snap
}
