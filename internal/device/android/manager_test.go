package android

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwfern/vmdeck/internal/cmdexec"
	"github.com/mwfern/vmdeck/internal/device"
)

const avdListTwo = `Available Android Virtual Devices:
    Name: Pixel_7_API_34
  Device: pixel_7 (Pixel 7)
    Path: /home/u/.android/avd/Pixel_7_API_34.avd
  Target: Google APIs (Google Inc.)
          Based on: Android 14.0 ("UpsideDownCake") Tag/ABI: google_apis/x86_64
---------
    Name: Tablet_API_33
  Device: pixel_tablet (Pixel Tablet)
    Path: /home/u/.android/avd/Tablet_API_33.avd
  Target: Google APIs (Google Inc.)
          Based on: Android 13.0 ("Tiramisu") Tag/ABI: google_apis/x86_64
`

func newTestManager(t *testing.T) (*Manager, *cmdexec.ScriptRunner) {
	t.Helper()
	t.Setenv("ANDROID_HOME", "")
	t.Setenv("ANDROID_SDK_ROOT", "")
	run := cmdexec.NewScriptRunner()
	return New(run, ""), run
}

func TestParseAVDList(t *testing.T) {
	infos := parseAVDList(avdListTwo)
	if len(infos) != 2 {
		t.Fatalf("parsed %d AVDs, want 2", len(infos))
	}
	if infos[0].Name != "Pixel_7_API_34" || infos[0].DeviceID != "pixel_7" {
		t.Fatalf("infos[0] = %+v", infos[0])
	}
	if infos[0].Path != "/home/u/.android/avd/Pixel_7_API_34.avd" {
		t.Fatalf("path = %q", infos[0].Path)
	}
	if !strings.Contains(infos[0].Target, "Based on: Android 14.0") {
		t.Fatalf("target did not absorb continuation line: %q", infos[0].Target)
	}
	if infos[1].Name != "Tablet_API_33" {
		t.Fatalf("infos[1] = %+v", infos[1])
	}
}

func TestParseAVDListEmptyAndMalformed(t *testing.T) {
	if got := parseAVDList(""); len(got) != 0 {
		t.Fatalf("empty input parsed to %v", got)
	}
	if got := parseAVDList("Available Android Virtual Devices:\n\nnot a field line\n"); len(got) != 0 {
		t.Fatalf("malformed input parsed to %v", got)
	}
}

func TestListMarksRunningDevices(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("avdmanager list avd", cmdexec.Result{Stdout: avdListTwo})
	run.Stub("adb devices", cmdexec.Result{Stdout: "List of devices attached\nemulator-5554\tdevice\n"})
	run.Stub("adb -s emulator-5554 shell getprop ro.boot.qemu.avd_name",
		cmdexec.Result{Stdout: "Pixel_7_API_34\n"})

	devices, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("len = %d, want 2", len(devices))
	}
	if devices[0].Status != device.StatusRunning {
		t.Fatalf("Pixel status = %v, want running", devices[0].Status)
	}
	if devices[1].Status != device.StatusStopped {
		t.Fatalf("Tablet status = %v, want stopped", devices[1].Status)
	}
	if devices[0].APILevel != 34 || devices[1].APILevel != 33 {
		t.Fatalf("api levels = %d/%d, want 34/33", devices[0].APILevel, devices[1].APILevel)
	}
}

func TestAvdNameFallsBackToEmulatorConsole(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("adb devices", cmdexec.Result{Stdout: "emulator-5556\tdevice\n"})
	run.Stub("adb -s emulator-5556 shell getprop ro.boot.qemu.avd_name",
		cmdexec.Result{Stdout: "\n"})
	run.Stub("adb -s emulator-5556 emu avd name",
		cmdexec.Result{Stdout: "Tablet_API_33\nOK\n"})

	serials := m.runningSerials(context.Background())
	if serials["Tablet_API_33"] != "emulator-5556" {
		t.Fatalf("serials = %v", serials)
	}
}

func TestStopPrefersGracefulShutdown(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("adb devices", cmdexec.Result{Stdout: "emulator-5554\tdevice\n"})
	run.Stub("adb -s emulator-5554 shell getprop ro.boot.qemu.avd_name",
		cmdexec.Result{Stdout: "Pixel_7_API_34\n"})
	run.Stub("adb -s emulator-5554 shell am broadcast -a android.intent.action.ACTION_SHUTDOWN",
		cmdexec.Result{Stdout: "Broadcast completed\n"})
	run.Stub("adb -s emulator-5554 shell reboot -p", cmdexec.Result{})

	if err := m.Stop(context.Background(), "Pixel_7_API_34"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	for _, call := range run.Calls() {
		if strings.Contains(call, "emu kill") {
			t.Fatalf("graceful path still used emu kill: %v", run.Calls())
		}
	}
}

func TestStopNotRunningIsNoop(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("adb devices", cmdexec.Result{Stdout: "List of devices attached\n"})

	if err := m.Stop(context.Background(), "Pixel_7_API_34"); err != nil {
		t.Fatalf("Stop of stopped device: %v", err)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("avdmanager list avd", cmdexec.Result{Stdout: avdListTwo})
	run.Stub("adb devices", cmdexec.Result{Stdout: ""})

	err := m.Create(context.Background(), device.CreateConfig{
		Name:       "Pixel_7_API_34",
		DeviceType: "pixel_7",
		Version:    "34",
	})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("Create duplicate = %v, want already-exists error", err)
	}
}

func TestCreateBuildsSystemImagePackage(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("avdmanager list avd", cmdexec.Result{Stdout: ""})
	run.Stub("adb devices", cmdexec.Result{Stdout: ""})
	pkg := "system-images;android-34;google_apis;" + hostABI()
	run.Stub("avdmanager create avd --name My_Phone --package "+pkg+" --device pixel_7",
		cmdexec.Result{})

	err := m.Create(context.Background(), device.CreateConfig{
		Name:       "My Phone",
		DeviceType: "pixel_7",
		Version:    "34",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var created bool
	for _, call := range run.Calls() {
		if strings.HasPrefix(call, "avdmanager create avd --name My_Phone") {
			created = true
		}
	}
	if !created {
		t.Fatalf("create avd not invoked: %v", run.Calls())
	}
}

func TestCreateValidatesBeforeTouchingTools(t *testing.T) {
	m, run := newTestManager(t)

	err := m.Create(context.Background(), device.CreateConfig{
		Name:       "x",
		DeviceType: "pixel_7",
		Version:    "34",
		RAMSizeMB:  64,
	})
	if err == nil {
		t.Fatal("undersized RAM passed")
	}
	if len(run.Calls()) != 0 {
		t.Fatalf("validation failure still ran commands: %v", run.Calls())
	}
}

func TestWipeRemovesUserData(t *testing.T) {
	avdDir := t.TempDir()
	for _, name := range []string{"userdata.img", "cache.img"} {
		if err := os.WriteFile(filepath.Join(avdDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(avdDir, "snapshots", "default"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	listOut := "    Name: Wipeme\n  Device: pixel_7 (Pixel 7)\n    Path: " + avdDir + "\n  Target: Google APIs\n"
	m, run := newTestManager(t)
	run.Stub("avdmanager list avd", cmdexec.Result{Stdout: listOut})
	run.Stub("adb devices", cmdexec.Result{Stdout: ""})

	if err := m.Wipe(context.Background(), "Wipeme"); err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if _, err := os.Stat(filepath.Join(avdDir, "userdata.img")); !os.IsNotExist(err) {
		t.Fatal("userdata.img survived wipe")
	}
	if _, err := os.Stat(filepath.Join(avdDir, "snapshots")); !os.IsNotExist(err) {
		t.Fatal("snapshots dir survived wipe")
	}
}

func TestDetailsReadsConfigINI(t *testing.T) {
	avdDir := t.TempDir()
	ini := strings.Join([]string{
		"avd.ini.displayname=My Phone",
		"hw.ramSize=2048",
		"disk.dataPartition.size=8192M",
		"image.sysdir.1=system-images/android-34/google_apis/x86_64/",
		"hw.lcd.width=1080",
		"hw.lcd.height=2400",
		"hw.lcd.density=420",
	}, "\n")
	if err := os.WriteFile(filepath.Join(avdDir, "config.ini"), []byte(ini), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	listOut := "    Name: My_Phone\n  Device: pixel_7 (Pixel 7)\n    Path: " + avdDir + "\n  Target: Google APIs\n"
	m, run := newTestManager(t)
	run.Stub("avdmanager list avd", cmdexec.Result{Stdout: listOut})
	run.Stub("adb devices", cmdexec.Result{Stdout: ""})

	det, err := m.Details(context.Background(), "My_Phone")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if det.Name != "My Phone" {
		t.Fatalf("Name = %q, want display name", det.Name)
	}
	if det.RAMSizeMB != 2048 || det.StorageSizeMB != 8192 {
		t.Fatalf("sizing = %d/%d", det.RAMSizeMB, det.StorageSizeMB)
	}
	if det.Resolution != "1080x2400" || det.DPI != "420" {
		t.Fatalf("display = %q/%q", det.Resolution, det.DPI)
	}
	if det.RuntimeVersion != "API 34 - Android 14" {
		t.Fatalf("RuntimeVersion = %q", det.RuntimeVersion)
	}
}

func TestStreamLogsParsesLevels(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("adb devices", cmdexec.Result{Stdout: "emulator-5554\tdevice\n"})
	run.Stub("adb -s emulator-5554 shell getprop ro.boot.qemu.avd_name",
		cmdexec.Result{Stdout: "Pixel_7_API_34\n"})
	run.StubStream("adb -s emulator-5554 logcat -v time",
		"--------- beginning of main",
		"01-02 03:04:05.678 E/ActivityManager( 123): boom",
		"01-02 03:04:05.679 I/Zygote  ( 124): started",
	)

	var lines []device.LogLine
	err := m.StreamLogs(context.Background(), "Pixel_7_API_34", func(l device.LogLine) {
		lines = append(lines, l)
	})
	if err != nil {
		t.Fatalf("StreamLogs: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (separator dropped)", len(lines))
	}
	if lines[0].Level != "error" || !strings.Contains(lines[0].Message, "boom") {
		t.Fatalf("lines[0] = %+v", lines[0])
	}
	if lines[1].Level != "info" {
		t.Fatalf("lines[1] = %+v", lines[1])
	}
	if lines[0].DeviceID != "Pixel_7_API_34" {
		t.Fatalf("DeviceID = %q", lines[0].DeviceID)
	}
}

func TestStreamLogsRequiresRunningDevice(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("adb devices", cmdexec.Result{Stdout: ""})

	err := m.StreamLogs(context.Background(), "Pixel_7_API_34", func(device.LogLine) {})
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Fatalf("err = %v, want not-running error", err)
	}
}

func TestCreateOptions(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("avdmanager list device", cmdexec.Result{Stdout: `
id: 9 or "pixel_7"
    Name: Pixel 7
    OEM : Google
---------
id: 17 or "pixel_tablet"
    Name: Pixel Tablet
    OEM : Google
`})
	run.Stub("sdkmanager --list_installed", cmdexec.Result{Stdout: `
Installed packages:
  system-images;android-34;google_apis;x86_64 | 1 | Google APIs Intel x86_64
  system-images;android-33;google_apis;x86_64 | 2 | Google APIs Intel x86_64
  platforms;android-34 | 3 | Android SDK Platform 34
`})

	opts, err := m.CreateOptions(context.Background())
	if err != nil {
		t.Fatalf("CreateOptions: %v", err)
	}
	if len(opts.DeviceTypes) != 2 || opts.DeviceTypes[0].ID != "pixel_7" {
		t.Fatalf("device types = %v", opts.DeviceTypes)
	}
	if len(opts.Versions) != 2 {
		t.Fatalf("versions = %v", opts.Versions)
	}
	if opts.Versions[0].ID != "34" || opts.Versions[0].Display != "API 34 - Android 14" {
		t.Fatalf("versions[0] = %+v, want newest first", opts.Versions[0])
	}
}

func TestCreateOptionsFallsBackWithoutSdkmanager(t *testing.T) {
	m, run := newTestManager(t)
	run.Stub("avdmanager list device", cmdexec.Result{Stdout: "id: 9 or \"pixel_7\"\n    Name: Pixel 7\n"})
	// sdkmanager is not stubbed, so the call fails and defaults apply.

	opts, err := m.CreateOptions(context.Background())
	if err != nil {
		t.Fatalf("CreateOptions: %v", err)
	}
	if len(opts.Versions) == 0 {
		t.Fatal("no fallback versions offered")
	}
	if opts.Versions[0].ID != "35" {
		t.Fatalf("versions[0] = %+v, want API 35 first", opts.Versions[0])
	}
}

func TestParseMB(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"2048", 2048},
		{"8192M", 8192},
		{"8G", 8192},
		{"800MB", 800},
		{"", 0},
		{"junk", 0},
	}
	for _, tc := range cases {
		if got := parseMB(tc.in); got != tc.want {
			t.Errorf("parseMB(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestApiLevelFromTarget(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{`Google APIs (Google Inc.) Based on: Android 14.0 ("UpsideDownCake")`, 34},
		{`Based on: Android 12L`, 32},
		{`Based on: Android 8.1`, 27},
		{`Based on: Android 8.0`, 26},
		{"no android info", 0},
	}
	for _, tc := range cases {
		if got := apiLevelFromTarget(tc.in); got != tc.want {
			t.Errorf("apiLevelFromTarget(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
