package ios

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mwfern/vmdeck/internal/cmdexec"
	"github.com/mwfern/vmdeck/internal/device"
	"github.com/mwfern/vmdeck/internal/logging"
)

const (
	runtimePrefix    = "com.apple.CoreSimulator.SimRuntime.iOS-"
	deviceTypePrefix = "com.apple.CoreSimulator.SimDeviceType."

	alreadyBooted   = "Unable to boot device in current state: Booted"
	alreadyShutdown = "Unable to shutdown device in current state: Shutdown"
)

// Manager drives iOS simulators through `xcrun simctl`. Simulators are
// identified by UDID, which doubles as the device ID throughout vmdeck.
type Manager struct {
	run cmdexec.Runner
}

// New builds a Manager around the given runner.
func New(run cmdexec.Runner) *Manager {
	return &Manager{run: run}
}

// Platform implements device.Manager.
func (m *Manager) Platform() device.Platform { return device.IOS }

// Available implements device.Manager.
func (m *Manager) Available(ctx context.Context) bool {
	_, err := m.run.Run(ctx, "xcrun", "simctl", "help")
	return err == nil
}

// simctlDevice mirrors one entry of `simctl list devices --json`.
type simctlDevice struct {
	UDID                 string `json:"udid"`
	Name                 string `json:"name"`
	State                string `json:"state"`
	IsAvailable          bool   `json:"isAvailable"`
	DeviceTypeIdentifier string `json:"deviceTypeIdentifier"`
	DataPath             string `json:"dataPath"`
}

type simctlDeviceList struct {
	Devices map[string][]simctlDevice `json:"devices"`
}

// List implements device.Manager. Non-iOS runtimes (watchOS, tvOS) are
// filtered out.
func (m *Manager) List(ctx context.Context) ([]device.Device, error) {
	byRuntime, err := m.listRaw(ctx)
	if err != nil {
		return nil, err
	}

	runtimes := make([]string, 0, len(byRuntime))
	for rt := range byRuntime {
		if strings.HasPrefix(rt, runtimePrefix) {
			runtimes = append(runtimes, rt)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runtimes)))

	var devices []device.Device
	for _, rt := range runtimes {
		version := runtimeDisplay(rt)
		for _, sd := range byRuntime[rt] {
			devices = append(devices, device.Device{
				Platform:       device.IOS,
				ID:             sd.UDID,
				Name:           sd.Name,
				Status:         parseState(sd.State),
				DeviceType:     strings.TrimPrefix(sd.DeviceTypeIdentifier, deviceTypePrefix),
				RuntimeVersion: version,
				Available:      sd.IsAvailable,
			})
		}
	}
	return devices, nil
}

// Start implements device.Manager. Booting an already-booted simulator is
// not an error, and the Simulator app is opened so the device has a window.
func (m *Manager) Start(ctx context.Context, id string) error {
	if _, err := m.run.Run(ctx, "xcrun", "simctl", "boot", id); err != nil {
		if !strings.Contains(err.Error(), alreadyBooted) {
			return fmt.Errorf("boot simulator %q: %w", id, err)
		}
	}
	_, _ = m.run.Run(ctx, "open", "-a", "Simulator")
	logging.LogDeviceOp("start", "ios", id)
	return nil
}

// Stop implements device.Manager.
func (m *Manager) Stop(ctx context.Context, id string) error {
	if _, err := m.run.Run(ctx, "xcrun", "simctl", "shutdown", id); err != nil {
		if !strings.Contains(err.Error(), alreadyShutdown) {
			return fmt.Errorf("shutdown simulator %q: %w", id, err)
		}
	}
	logging.LogDeviceOp("stop", "ios", id)
	return nil
}

// Create implements device.Manager. cfg.DeviceType and cfg.Version carry
// the full CoreSimulator identifiers chosen from CreateOptions.
func (m *Manager) Create(ctx context.Context, cfg device.CreateConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	name := strings.TrimSpace(cfg.Name)
	_, err := m.run.Run(ctx, "xcrun", "simctl", "create", name, cfg.DeviceType, cfg.Version)
	if err != nil {
		return fmt.Errorf("create simulator %q: %w", name, err)
	}
	logging.LogDeviceOp("create", "ios", name)
	return nil
}

// Delete implements device.Manager.
func (m *Manager) Delete(ctx context.Context, id string) error {
	// A booted simulator cannot be deleted.
	_ = m.Stop(ctx, id)
	if _, err := m.run.Run(ctx, "xcrun", "simctl", "delete", id); err != nil {
		return fmt.Errorf("delete simulator %q: %w", id, err)
	}
	logging.LogDeviceOp("delete", "ios", id)
	return nil
}

// Wipe implements device.Manager.
func (m *Manager) Wipe(ctx context.Context, id string) error {
	_ = m.Stop(ctx, id)
	if _, err := m.run.Run(ctx, "xcrun", "simctl", "erase", id); err != nil {
		return fmt.Errorf("erase simulator %q: %w", id, err)
	}
	logging.LogDeviceOp("wipe", "ios", id)
	return nil
}

// Details implements device.Manager.
func (m *Manager) Details(ctx context.Context, id string) (device.Details, error) {
	byRuntime, err := m.listRaw(ctx)
	if err != nil {
		return device.Details{}, err
	}
	for rt, list := range byRuntime {
		for _, sd := range list {
			if sd.UDID != id {
				continue
			}
			path := sd.DataPath
			if path == "" {
				if home, herr := os.UserHomeDir(); herr == nil {
					path = filepath.Join(home, "Library", "Developer", "CoreSimulator", "Devices", id)
				}
			}
			return device.Details{
				Platform:       device.IOS,
				ID:             id,
				Name:           sd.Name,
				Status:         parseState(sd.State),
				DeviceType:     strings.TrimPrefix(sd.DeviceTypeIdentifier, deviceTypePrefix),
				RuntimeVersion: runtimeDisplay(rt),
				Path:           path,
			}, nil
		}
	}
	return device.Details{}, fmt.Errorf("simulator %q not found", id)
}

// StreamLogs implements device.Manager. Lines come from the unified log
// via `simctl spawn <udid> log stream`.
func (m *Manager) StreamLogs(ctx context.Context, id string, fn func(device.LogLine)) error {
	stream, err := m.run.Start(ctx, "xcrun", "simctl", "spawn", id, "log", "stream", "--style", "compact")
	if err != nil {
		return fmt.Errorf("log stream %q: %w", id, err)
	}
	for line := range stream.Lines() {
		if ll, ok := parseLogLine(line, id); ok {
			fn(ll)
		}
	}
	if err := stream.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("log stream %q: %w", id, err)
	}
	return nil
}

// CreateOptions implements device.Manager. Only available iOS runtimes
// and iPhone/iPad device types are offered.
func (m *Manager) CreateOptions(ctx context.Context) (device.CreateOptions, error) {
	var opts device.CreateOptions

	dtOut, err := m.run.Run(ctx, "xcrun", "simctl", "list", "devicetypes", "--json")
	if err != nil {
		return opts, fmt.Errorf("list device types: %w", err)
	}
	var dts struct {
		DeviceTypes []struct {
			Name       string `json:"name"`
			Identifier string `json:"identifier"`
		} `json:"devicetypes"`
	}
	if err := json.Unmarshal([]byte(dtOut), &dts); err != nil {
		return opts, fmt.Errorf("parse device types: %w", err)
	}
	for _, dt := range dts.DeviceTypes {
		if !strings.Contains(dt.Name, "iPhone") && !strings.Contains(dt.Name, "iPad") {
			continue
		}
		opts.DeviceTypes = append(opts.DeviceTypes, device.Option{
			ID:      dt.Identifier,
			Display: strings.ReplaceAll(dt.Name, " inch", `"`),
		})
	}

	rtOut, err := m.run.Run(ctx, "xcrun", "simctl", "list", "runtimes", "--json")
	if err != nil {
		return opts, fmt.Errorf("list runtimes: %w", err)
	}
	var rts struct {
		Runtimes []struct {
			Name        string `json:"name"`
			Identifier  string `json:"identifier"`
			IsAvailable bool   `json:"isAvailable"`
		} `json:"runtimes"`
	}
	if err := json.Unmarshal([]byte(rtOut), &rts); err != nil {
		return opts, fmt.Errorf("parse runtimes: %w", err)
	}
	for _, rt := range rts.Runtimes {
		if !rt.IsAvailable || !strings.HasPrefix(rt.Identifier, runtimePrefix) {
			continue
		}
		opts.Versions = append(opts.Versions, device.Option{ID: rt.Identifier, Display: rt.Name})
	}
	// Newest runtime first, matching the create form's default selection.
	sort.Slice(opts.Versions, func(i, j int) bool {
		return opts.Versions[i].ID > opts.Versions[j].ID
	})
	return opts, nil
}

func (m *Manager) listRaw(ctx context.Context) (map[string][]simctlDevice, error) {
	out, err := m.run.Run(ctx, "xcrun", "simctl", "list", "devices", "--json")
	if err != nil {
		return nil, fmt.Errorf("list simulators: %w", err)
	}
	var parsed simctlDeviceList
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, fmt.Errorf("parse simctl output: %w", err)
	}
	return parsed.Devices, nil
}

func parseState(state string) device.Status {
	switch state {
	case "Booted":
		return device.StatusRunning
	case "Shutdown":
		return device.StatusStopped
	case "Booting":
		return device.StatusStarting
	case "Shutting Down":
		return device.StatusStopping
	case "Creating":
		return device.StatusCreating
	default:
		return device.StatusUnknown
	}
}

// runtimeDisplay turns "com.apple.CoreSimulator.SimRuntime.iOS-17-0"
// into "iOS 17.0".
func runtimeDisplay(identifier string) string {
	v := strings.TrimPrefix(identifier, runtimePrefix)
	return "iOS " + strings.ReplaceAll(v, "-", ".")
}

// parseLogLine parses one `log stream --style compact` line. The level
// token follows the timestamp: Db, Df (debug), I (info), E (error), Fault.
func parseLogLine(line, deviceID string) (device.LogLine, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return device.LogLine{}, false
	}
	// fields: date, time, level, process[pid:tid], message...
	var level string
	switch fields[2] {
	case "E", "Error":
		level = "error"
	case "Fault":
		level = "error"
	case "W", "Warning":
		level = "warn"
	case "Db", "Df", "D", "Debug":
		level = "debug"
	case "I", "Info", "Default":
		level = "info"
	default:
		return device.LogLine{}, false
	}
	return device.LogLine{
		Platform: device.IOS,
		DeviceID: deviceID,
		Level:    level,
		Message:  strings.Join(fields[3:], " "),
		Time:     time.Now(),
	}, true
}
