// Package devicefake provides an in-memory device.Manager for tests.
package devicefake

import (
	"context"
	"fmt"
	"sync"

	"github.com/mwfern/vmdeck/internal/device"
)

// Manager is a scriptable in-memory backend. The zero value is not
// usable; construct with New. All methods are safe for concurrent use.
type Manager struct {
	platform device.Platform

	mu      sync.Mutex
	devices []device.Device
	details map[string]device.Details
	options device.CreateOptions
	calls   []string
	err     map[string]error // per-op injected failures, keyed by op name

	// LogLines is consumed by StreamLogs; send lines here and close to
	// end the stream. Nil means StreamLogs blocks until cancelled.
	LogLines chan device.LogLine

	unavailable bool
}

// New builds a fake for the given platform seeded with devices.
func New(platform device.Platform, devices ...device.Device) *Manager {
	return &Manager{
		platform: platform,
		devices:  devices,
		details:  make(map[string]device.Details),
		err:      make(map[string]error),
	}
}

// SetDevices replaces the device list returned by List.
func (m *Manager) SetDevices(devices ...device.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = devices
}

// SetDetails registers the detail bag returned for id.
func (m *Manager) SetDetails(id string, det device.Details) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[id] = det
}

// SetOptions registers the CreateOptions result.
func (m *Manager) SetOptions(opts device.CreateOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options = opts
}

// FailWith makes the named operation ("start", "stop", "create",
// "delete", "wipe", "list", "details", "options") return err.
func (m *Manager) FailWith(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err[op] = err
}

// SetUnavailable makes Available report false.
func (m *Manager) SetUnavailable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = true
}

// Calls returns the operations invoked so far, like "start Pixel".
func (m *Manager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Manager) record(op string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		m.calls = append(m.calls, op)
	} else {
		m.calls = append(m.calls, op+" "+id)
	}
	return m.err[op]
}

// Platform implements device.Manager.
func (m *Manager) Platform() device.Platform { return m.platform }

// Available implements device.Manager.
func (m *Manager) Available(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unavailable
}

// List implements device.Manager.
func (m *Manager) List(ctx context.Context) ([]device.Device, error) {
	if err := m.record("list", ""); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]device.Device, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

// Start implements device.Manager and flips the device to running.
func (m *Manager) Start(ctx context.Context, id string) error {
	if err := m.record("start", id); err != nil {
		return err
	}
	return m.setStatus(id, device.StatusRunning)
}

// Stop implements device.Manager and flips the device to stopped.
func (m *Manager) Stop(ctx context.Context, id string) error {
	if err := m.record("stop", id); err != nil {
		return err
	}
	return m.setStatus(id, device.StatusStopped)
}

// Create implements device.Manager and appends a stopped device.
func (m *Manager) Create(ctx context.Context, cfg device.CreateConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := m.record("create", cfg.Name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, device.Device{
		Platform:   m.platform,
		ID:         cfg.Name,
		Name:       cfg.Name,
		Status:     device.StatusStopped,
		DeviceType: cfg.DeviceType,
		Available:  true,
	})
	return nil
}

// Delete implements device.Manager.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.record("delete", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.devices {
		if d.ID == id {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("device %q not found", id)
}

// Wipe implements device.Manager.
func (m *Manager) Wipe(ctx context.Context, id string) error {
	return m.record("wipe", id)
}

// Details implements device.Manager.
func (m *Manager) Details(ctx context.Context, id string) (device.Details, error) {
	if err := m.record("details", id); err != nil {
		return device.Details{}, err
	}
	if err := ctx.Err(); err != nil {
		return device.Details{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if det, ok := m.details[id]; ok {
		return det, nil
	}
	return device.Details{Platform: m.platform, ID: id}, nil
}

// StreamLogs implements device.Manager. Lines sent to LogLines are
// forwarded to fn; the stream ends when LogLines is closed or ctx is
// cancelled.
func (m *Manager) StreamLogs(ctx context.Context, id string, fn func(device.LogLine)) error {
	if err := m.record("logs", id); err != nil {
		return err
	}
	if m.LogLines == nil {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-m.LogLines:
			if !ok {
				return nil
			}
			line.Platform = m.platform
			fn(line)
		}
	}
}

// CreateOptions implements device.Manager.
func (m *Manager) CreateOptions(ctx context.Context) (device.CreateOptions, error) {
	if err := m.record("options", ""); err != nil {
		return device.CreateOptions{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.options, nil
}

func (m *Manager) setStatus(id string, status device.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.devices {
		if d.ID == id {
			m.devices[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("device %q not found", id)
}
