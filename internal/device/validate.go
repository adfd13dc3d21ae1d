package device

import (
	"fmt"
	"strings"
	"unicode"
)

// Creation limits enforced before any backend call is made.
const (
	MinRAMMB     = 512
	MaxRAMMB     = 8192
	MinStorageMB = 1024
	MaxStorageMB = 65536

	MaxNameLength = 50
)

// SanitizeName replaces characters that are unsafe in AVD names and
// filesystem paths with underscores.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ValidateName checks a user-entered device name against the field rules.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(trimmed) > MaxNameLength {
		return fmt.Errorf("name exceeds %d characters", MaxNameLength)
	}
	return nil
}

// Validate checks a CreateConfig before it is handed to a backend.
// RAM and storage bounds only apply when set (Android).
func (c CreateConfig) Validate() error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if c.DeviceType == "" {
		return fmt.Errorf("device type must be selected")
	}
	if c.Version == "" {
		return fmt.Errorf("system image version must be selected")
	}
	if c.RAMSizeMB != 0 && (c.RAMSizeMB < MinRAMMB || c.RAMSizeMB > MaxRAMMB) {
		return fmt.Errorf("RAM must be between %d and %d MB", MinRAMMB, MaxRAMMB)
	}
	if c.StorageSizeMB != 0 && (c.StorageSizeMB < MinStorageMB || c.StorageSizeMB > MaxStorageMB) {
		return fmt.Errorf("storage must be between %d and %d MB", MinStorageMB, MaxStorageMB)
	}
	return nil
}
