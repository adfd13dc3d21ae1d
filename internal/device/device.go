package device

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies which virtual device family a value belongs to.
type Platform int

const (
	Android Platform = iota
	IOS
)

// Toggle returns the other platform.
func (p Platform) Toggle() Platform {
	if p == Android {
		return IOS
	}
	return Android
}

func (p Platform) String() string {
	switch p {
	case Android:
		return "android"
	case IOS:
		return "ios"
	default:
		return fmt.Sprintf("platform(%d)", int(p))
	}
}

// Title returns the display name used in panel headers.
func (p Platform) Title() string {
	if p == Android {
		return "Android"
	}
	return "iOS"
}

// ParsePlatform maps a CLI flag value to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "android":
		return Android, nil
	case "ios":
		return IOS, nil
	default:
		return Android, fmt.Errorf("unknown platform %q (want android or ios)", s)
	}
}

// Status is the lifecycle state of a virtual device.
type Status int

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
	StatusCreating
	StatusError
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusCreating:
		return "creating"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Device is one virtual device as reported by a backend. Backends return
// fresh copies; the state store owns every Device it holds.
type Device struct {
	Platform Platform
	// ID is the AVD name on Android and the simulator UDID on iOS. Unique
	// within its platform.
	ID     string
	Name   string
	Status Status
	// ErrorDetail carries the message of the last failed operation while
	// Status is StatusError.
	ErrorDetail string

	DeviceType     string // e.g. "pixel_7", "iPhone 15"
	APILevel       int    // Android only
	RuntimeVersion string // e.g. "iOS 17.0"; empty on Android
	RAMSizeMB      int
	StorageSizeMB  int
	Available      bool
}

// Running reports whether the device is currently usable.
func (d Device) Running() bool { return d.Status == StatusRunning }

// Details is the expensive-to-fetch detail bag for one device.
type Details struct {
	Platform       Platform
	ID             string
	Name           string
	Status         Status
	DeviceType     string
	RuntimeVersion string // "API 34 (Android 14)" or "iOS 17.0"
	RAMSizeMB      int
	StorageSizeMB  int
	Resolution     string
	DPI            string
	Path           string
	SystemImage    string
}

// CreateConfig carries validated input for device creation.
type CreateConfig struct {
	Name       string
	DeviceType string
	// Version is the system image version: "34" style API level on
	// Android, a runtime identifier or "17.0" on iOS.
	Version       string
	RAMSizeMB     int // Android only; 0 means backend default
	StorageSizeMB int // Android only; 0 means backend default
}

// LogLine is one leveled log line tagged with its originating device.
type LogLine struct {
	Platform Platform
	DeviceID string
	Level    string // "error", "warn", "info" or "debug"
	Message  string
	Time     time.Time
}

// Option is an (id, display) pair offered by a backend for form selection.
type Option struct {
	ID      string
	Display string
}

// CreateOptions lists what a backend can build devices from.
type CreateOptions struct {
	DeviceTypes []Option
	Versions    []Option
}
