package android

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mwfern/vmdeck/internal/cmdexec"
	"github.com/mwfern/vmdeck/internal/device"
	"github.com/mwfern/vmdeck/internal/logging"
)

// User data files removed by Wipe. The emulator recreates them on next boot.
var wipeFiles = []string{
	"userdata.img",
	"userdata-qemu.img",
	"cache.img",
	"cache.img.qcow2",
	"userdata.img.qcow2",
	"sdcard.img",
	"sdcard.img.qcow2",
	"multiinstance.lock",
}

// Manager drives Android virtual devices through the SDK command-line
// tools: avdmanager for AVD lifecycle, emulator for boot, adb for status
// and logs, sdkmanager for system image discovery.
type Manager struct {
	run cmdexec.Runner

	avdmanager string
	emulator   string
	adb        string
	sdkmanager string
}

// New builds a Manager. sdkRoot overrides SDK discovery; when empty the
// ANDROID_HOME and ANDROID_SDK_ROOT environment variables are consulted,
// and tools fall back to bare names resolved via PATH.
func New(run cmdexec.Runner, sdkRoot string) *Manager {
	if sdkRoot == "" {
		sdkRoot = os.Getenv("ANDROID_HOME")
	}
	if sdkRoot == "" {
		sdkRoot = os.Getenv("ANDROID_SDK_ROOT")
	}
	m := &Manager{
		run:        run,
		avdmanager: "avdmanager",
		emulator:   "emulator",
		adb:        "adb",
		sdkmanager: "sdkmanager",
	}
	if sdkRoot != "" {
		m.avdmanager = firstExisting(m.avdmanager,
			filepath.Join(sdkRoot, "cmdline-tools", "latest", "bin", "avdmanager"),
			filepath.Join(sdkRoot, "tools", "bin", "avdmanager"))
		m.sdkmanager = firstExisting(m.sdkmanager,
			filepath.Join(sdkRoot, "cmdline-tools", "latest", "bin", "sdkmanager"),
			filepath.Join(sdkRoot, "tools", "bin", "sdkmanager"))
		m.emulator = firstExisting(m.emulator, filepath.Join(sdkRoot, "emulator", "emulator"))
		m.adb = firstExisting(m.adb, filepath.Join(sdkRoot, "platform-tools", "adb"))
	}
	return m
}

func firstExisting(fallback string, candidates ...string) string {
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return fallback
}

// Platform implements device.Manager.
func (m *Manager) Platform() device.Platform { return device.Android }

// Available implements device.Manager.
func (m *Manager) Available(ctx context.Context) bool {
	_, err := m.run.Run(ctx, m.adb, "version")
	return err == nil
}

// List implements device.Manager.
func (m *Manager) List(ctx context.Context) ([]device.Device, error) {
	out, err := m.run.Run(ctx, m.avdmanager, "list", "avd")
	if err != nil {
		return nil, fmt.Errorf("list avds: %w", err)
	}
	infos := parseAVDList(out)
	running := m.runningSerials(ctx)

	devices := make([]device.Device, 0, len(infos))
	for _, info := range infos {
		d := device.Device{
			Platform:   device.Android,
			ID:         info.Name,
			Name:       info.Name,
			DeviceType: info.DeviceID,
			Status:     device.StatusStopped,
			Available:  true,
		}
		if _, ok := running[info.Name]; ok {
			d.Status = device.StatusRunning
		}
		if cfg := readConfigINI(filepath.Join(info.Path, "config.ini")); cfg != nil {
			if name := cfg["avd.ini.displayname"]; name != "" {
				d.Name = name
			}
			d.APILevel = apiLevelFromSysdir(cfg["image.sysdir.1"])
			d.RAMSizeMB = parseMB(cfg["hw.ramSize"])
			d.StorageSizeMB = parseMB(cfg["disk.dataPartition.size"])
		}
		if d.APILevel == 0 {
			d.APILevel = apiLevelFromTarget(info.Target)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// Start implements device.Manager. The emulator process must outlive both
// this call and the application, so it is detached from ctx.
func (m *Manager) Start(ctx context.Context, id string) error {
	stream, err := m.run.Start(context.WithoutCancel(ctx), m.emulator,
		"-avd", id,
		"-no-audio",
		"-no-snapshot-save",
		"-no-boot-anim",
		"-netfast",
	)
	if err != nil {
		return fmt.Errorf("start emulator %q: %w", id, err)
	}
	go func() {
		for range stream.Lines() {
		}
		if werr := stream.Wait(); werr != nil {
			logging.Warn("emulator exited", zap.String("avd", id), zap.Error(werr))
		}
	}()
	logging.LogDeviceOp("start", "android", id)
	return nil
}

// Stop implements device.Manager. The running emulator is asked to power
// off via the Android OS first; killing the emulator process is a last
// resort because it can corrupt userdata.
func (m *Manager) Stop(ctx context.Context, id string) error {
	serial, ok := m.runningSerials(ctx)[id]
	if !ok {
		return nil
	}
	_, err := m.run.Run(ctx, m.adb, "-s", serial,
		"shell", "am", "broadcast", "-a", "android.intent.action.ACTION_SHUTDOWN")
	if err == nil {
		_, _ = m.run.Run(ctx, m.adb, "-s", serial, "shell", "reboot", "-p")
		logging.LogDeviceOp("stop", "android", id)
		return nil
	}
	if _, err := m.run.Run(ctx, m.adb, "-s", serial, "emu", "kill"); err != nil {
		return fmt.Errorf("stop emulator %q: %w", id, err)
	}
	logging.LogDeviceOp("stop", "android", id)
	return nil
}

// Create implements device.Manager.
func (m *Manager) Create(ctx context.Context, cfg device.CreateConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// AVD names only allow [a-zA-Z0-9._-]; the display name keeps the
	// user's original spelling via config.ini.
	safe := strings.Trim(device.SanitizeName(strings.TrimSpace(cfg.Name)), "_")
	if safe == "" {
		return fmt.Errorf("name %q has no characters valid in an AVD name", cfg.Name)
	}

	existing, err := m.List(ctx)
	if err != nil {
		return err
	}
	for _, d := range existing {
		if d.ID == safe {
			return fmt.Errorf("device %q already exists", safe)
		}
	}

	pkg := fmt.Sprintf("system-images;android-%s;google_apis;%s", cfg.Version, hostABI())
	_, err = m.run.Run(ctx, m.avdmanager, "create", "avd",
		"--name", safe,
		"--package", pkg,
		"--device", cfg.DeviceType,
	)
	if err != nil {
		return fmt.Errorf("create avd %q: %w", safe, err)
	}
	logging.LogDeviceOp("create", "android", safe)

	// Sizing and display name live in config.ini, which avdmanager does
	// not let us set at creation time.
	if path, ok := m.avdPath(ctx, safe); ok {
		tuneConfigINI(filepath.Join(path, "config.ini"), strings.TrimSpace(cfg.Name), cfg.RAMSizeMB, cfg.StorageSizeMB)
	}
	return nil
}

// Delete implements device.Manager.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, running := m.runningSerials(ctx)[id]; running {
		if err := m.Stop(ctx, id); err != nil {
			logging.Warn("stop before delete failed", zap.String("avd", id), zap.Error(err))
		}
		pause(ctx, 2*time.Second)
	}
	if _, err := m.run.Run(ctx, m.avdmanager, "delete", "avd", "-n", id); err != nil {
		return fmt.Errorf("delete avd %q: %w", id, err)
	}
	logging.LogDeviceOp("delete", "android", id)
	return nil
}

// Wipe implements device.Manager. User data files are removed directly
// from the AVD directory rather than booting the emulator with -wipe-data,
// which would leave a window running.
func (m *Manager) Wipe(ctx context.Context, id string) error {
	if _, running := m.runningSerials(ctx)[id]; running {
		if err := m.Stop(ctx, id); err != nil {
			return err
		}
		pause(ctx, 500*time.Millisecond)
	}

	path, ok := m.avdPath(ctx, id)
	if !ok {
		return fmt.Errorf("avd %q not found", id)
	}
	for _, name := range wipeFiles {
		file := filepath.Join(path, name)
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("wipe: remove failed", zap.String("file", file), zap.Error(err))
		}
	}
	if err := os.RemoveAll(filepath.Join(path, "snapshots")); err != nil {
		logging.Warn("wipe: snapshot cleanup failed", zap.String("avd", id), zap.Error(err))
	}
	logging.LogDeviceOp("wipe", "android", id)
	return nil
}

// Details implements device.Manager.
func (m *Manager) Details(ctx context.Context, id string) (device.Details, error) {
	out, err := m.run.Run(ctx, m.avdmanager, "list", "avd")
	if err != nil {
		return device.Details{}, fmt.Errorf("list avds: %w", err)
	}
	for _, info := range parseAVDList(out) {
		if info.Name != id {
			continue
		}
		det := device.Details{
			Platform:   device.Android,
			ID:         id,
			Name:       id,
			DeviceType: info.DeviceID,
			Path:       info.Path,
			Status:     device.StatusStopped,
		}
		if _, running := m.runningSerials(ctx)[id]; running {
			det.Status = device.StatusRunning
		}
		if cfg := readConfigINI(filepath.Join(info.Path, "config.ini")); cfg != nil {
			if name := cfg["avd.ini.displayname"]; name != "" {
				det.Name = name
			}
			det.RAMSizeMB = parseMB(cfg["hw.ramSize"])
			det.StorageSizeMB = parseMB(cfg["disk.dataPartition.size"])
			det.SystemImage = cfg["image.sysdir.1"]
			if w, h := cfg["hw.lcd.width"], cfg["hw.lcd.height"]; w != "" && h != "" {
				det.Resolution = w + "x" + h
			}
			det.DPI = cfg["hw.lcd.density"]
			if api := apiLevelFromSysdir(det.SystemImage); api != 0 {
				det.RuntimeVersion = apiDisplay(api)
			}
		}
		if det.RuntimeVersion == "" {
			if api := apiLevelFromTarget(info.Target); api != 0 {
				det.RuntimeVersion = apiDisplay(api)
			}
		}
		return det, nil
	}
	return device.Details{}, fmt.Errorf("avd %q not found", id)
}

// StreamLogs implements device.Manager.
func (m *Manager) StreamLogs(ctx context.Context, id string, fn func(device.LogLine)) error {
	serial, ok := m.runningSerials(ctx)[id]
	if !ok {
		return fmt.Errorf("device %q is not running", id)
	}
	stream, err := m.run.Start(ctx, m.adb, "-s", serial, "logcat", "-v", "time")
	if err != nil {
		return fmt.Errorf("logcat %q: %w", id, err)
	}
	for line := range stream.Lines() {
		if ll, ok := parseLogcatLine(line, id); ok {
			fn(ll)
		}
	}
	if err := stream.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("logcat %q: %w", id, err)
	}
	return nil
}

// CreateOptions implements device.Manager.
func (m *Manager) CreateOptions(ctx context.Context) (device.CreateOptions, error) {
	var opts device.CreateOptions

	devOut, err := m.run.Run(ctx, m.avdmanager, "list", "device")
	if err != nil {
		return opts, fmt.Errorf("list device definitions: %w", err)
	}
	opts.DeviceTypes = parseDeviceDefinitions(devOut)

	levels := m.installedAPILevels(ctx)
	if len(levels) == 0 {
		// No installed system images visible; offer the recent levels and
		// let creation surface the real error.
		levels = []int{35, 34, 33, 32, 31, 30, 29, 28}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))
	for _, api := range levels {
		opts.Versions = append(opts.Versions, device.Option{
			ID:      fmt.Sprintf("%d", api),
			Display: apiDisplay(api),
		})
	}
	return opts, nil
}

// runningSerials maps AVD names to adb serials for booted emulators.
// Name discovery tries boot properties first, then the emulator console.
func (m *Manager) runningSerials(ctx context.Context) map[string]string {
	serials := map[string]string{}
	out, err := m.run.Run(ctx, m.adb, "devices")
	if err != nil {
		return serials
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "emulator-") || fields[1] != "device" {
			continue
		}
		serial := fields[0]
		if name := m.avdNameFor(ctx, serial); name != "" {
			serials[name] = serial
		}
	}
	return serials
}

func (m *Manager) avdNameFor(ctx context.Context, serial string) string {
	if out, err := m.run.Run(ctx, m.adb, "-s", serial, "shell", "getprop", "ro.boot.qemu.avd_name"); err == nil {
		if name := strings.TrimSpace(out); name != "" {
			return name
		}
	}
	if out, err := m.run.Run(ctx, m.adb, "-s", serial, "emu", "avd", "name"); err == nil {
		name := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
		if name != "" && name != "OK" && !strings.Contains(name, "error") && !strings.Contains(name, "KO") {
			return name
		}
	}
	if out, err := m.run.Run(ctx, m.adb, "-s", serial, "shell", "getprop", "ro.kernel.qemu.avd_name"); err == nil {
		if name := strings.TrimSpace(out); name != "" {
			return name
		}
	}
	return ""
}

func (m *Manager) avdPath(ctx context.Context, id string) (string, bool) {
	out, err := m.run.Run(ctx, m.avdmanager, "list", "avd")
	if err != nil {
		return "", false
	}
	for _, info := range parseAVDList(out) {
		if info.Name == id && info.Path != "" {
			return info.Path, true
		}
	}
	return "", false
}

func (m *Manager) installedAPILevels(ctx context.Context) []int {
	out, err := m.run.Run(ctx, m.sdkmanager, "--list_installed")
	if err != nil {
		return nil
	}
	return parseSystemImageLevels(out)
}

func hostABI() string {
	if runtime.GOARCH == "arm64" {
		return "arm64-v8a"
	}
	return "x86_64"
}

func pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
