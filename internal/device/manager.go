package device

import "context"

// Manager is the per-platform backend contract. Implementations wrap the
// platform command-line tooling and must be safe for concurrent use; every
// method honors context cancellation mid-flight.
type Manager interface {
	Platform() Platform

	// List enumerates all devices, running or not, in backend order.
	List(ctx context.Context) ([]Device, error)

	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Create(ctx context.Context, cfg CreateConfig) error
	Delete(ctx context.Context, id string) error
	// Wipe resets a device to factory state without deleting it.
	Wipe(ctx context.Context, id string) error

	// Details fetches the full detail bag for one device.
	Details(ctx context.Context, id string) (Details, error)

	// StreamLogs delivers log lines for id to fn until ctx is cancelled.
	// A nil return on cancellation is expected; fn is never called after
	// StreamLogs returns.
	StreamLogs(ctx context.Context, id string, fn func(LogLine)) error

	// CreateOptions lists the device types and system image versions
	// available for new devices.
	CreateOptions(ctx context.Context) (CreateOptions, error)

	// Available reports whether the platform tooling is installed.
	Available(ctx context.Context) bool
}
