package ios

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mwfern/vmdeck/internal/cmdexec"
	"github.com/mwfern/vmdeck/internal/device"
)

const deviceListJSON = `{
  "devices": {
    "com.apple.CoreSimulator.SimRuntime.iOS-17-0": [
      {
        "udid": "AAAA-1111",
        "name": "iPhone 15",
        "state": "Booted",
        "isAvailable": true,
        "deviceTypeIdentifier": "com.apple.CoreSimulator.SimDeviceType.iPhone-15",
        "dataPath": "/Users/u/Library/Developer/CoreSimulator/Devices/AAAA-1111/data"
      },
      {
        "udid": "BBBB-2222",
        "name": "iPad Air",
        "state": "Shutdown",
        "isAvailable": true,
        "deviceTypeIdentifier": "com.apple.CoreSimulator.SimDeviceType.iPad-Air"
      }
    ],
    "com.apple.CoreSimulator.SimRuntime.watchOS-10-0": [
      {
        "udid": "CCCC-3333",
        "name": "Apple Watch",
        "state": "Shutdown",
        "isAvailable": true,
        "deviceTypeIdentifier": "com.apple.CoreSimulator.SimDeviceType.Apple-Watch"
      }
    ]
  }
}`

func newTestManager() (*Manager, *cmdexec.ScriptRunner) {
	run := cmdexec.NewScriptRunner()
	return New(run), run
}

func TestListFiltersToIOSRuntimes(t *testing.T) {
	m, run := newTestManager()
	run.Stub("xcrun simctl list devices --json", cmdexec.Result{Stdout: deviceListJSON})

	devices, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("len = %d, want 2 (watchOS filtered)", len(devices))
	}
	if devices[0].ID != "AAAA-1111" || devices[0].Status != device.StatusRunning {
		t.Fatalf("devices[0] = %+v", devices[0])
	}
	if devices[0].RuntimeVersion != "iOS 17.0" {
		t.Fatalf("RuntimeVersion = %q", devices[0].RuntimeVersion)
	}
	if devices[0].DeviceType != "iPhone-15" {
		t.Fatalf("DeviceType = %q, want prefix stripped", devices[0].DeviceType)
	}
	if devices[1].Status != device.StatusStopped {
		t.Fatalf("devices[1] = %+v", devices[1])
	}
}

func TestStartToleratesAlreadyBooted(t *testing.T) {
	m, run := newTestManager()
	run.Stub("xcrun simctl boot AAAA-1111",
		cmdexec.Result{Err: errors.New("xcrun: exit status 164: " + alreadyBooted)})
	run.Stub("open -a Simulator", cmdexec.Result{})

	if err := m.Start(context.Background(), "AAAA-1111"); err != nil {
		t.Fatalf("Start of booted simulator: %v", err)
	}
}

func TestStartSurfacesRealBootErrors(t *testing.T) {
	m, run := newTestManager()
	run.Stub("xcrun simctl boot AAAA-1111",
		cmdexec.Result{Err: errors.New("Invalid device: AAAA-1111")})

	err := m.Start(context.Background(), "AAAA-1111")
	if err == nil || !strings.Contains(err.Error(), "Invalid device") {
		t.Fatalf("err = %v, want boot failure", err)
	}
}

func TestStopToleratesAlreadyShutdown(t *testing.T) {
	m, run := newTestManager()
	run.Stub("xcrun simctl shutdown BBBB-2222",
		cmdexec.Result{Err: errors.New("xcrun: exit status 164: " + alreadyShutdown)})

	if err := m.Stop(context.Background(), "BBBB-2222"); err != nil {
		t.Fatalf("Stop of stopped simulator: %v", err)
	}
}

func TestDeleteShutsDownFirst(t *testing.T) {
	m, run := newTestManager()
	run.Stub("xcrun simctl shutdown AAAA-1111", cmdexec.Result{})
	run.Stub("xcrun simctl delete AAAA-1111", cmdexec.Result{})

	if err := m.Delete(context.Background(), "AAAA-1111"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	calls := run.Calls()
	if len(calls) != 2 || !strings.Contains(calls[0], "shutdown") || !strings.Contains(calls[1], "delete") {
		t.Fatalf("calls = %v, want shutdown then delete", calls)
	}
}

func TestWipeUsesErase(t *testing.T) {
	m, run := newTestManager()
	run.Stub("xcrun simctl shutdown AAAA-1111", cmdexec.Result{})
	run.Stub("xcrun simctl erase AAAA-1111", cmdexec.Result{})

	if err := m.Wipe(context.Background(), "AAAA-1111"); err != nil {
		t.Fatalf("Wipe: %v", err)
	}
}

func TestCreatePassesIdentifiers(t *testing.T) {
	m, run := newTestManager()
	run.Stub("xcrun simctl create My Phone com.apple.CoreSimulator.SimDeviceType.iPhone-15 com.apple.CoreSimulator.SimRuntime.iOS-17-0",
		cmdexec.Result{Stdout: "DDDD-4444\n"})

	err := m.Create(context.Background(), device.CreateConfig{
		Name:       "My Phone",
		DeviceType: "com.apple.CoreSimulator.SimDeviceType.iPhone-15",
		Version:    "com.apple.CoreSimulator.SimRuntime.iOS-17-0",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestDetails(t *testing.T) {
	m, run := newTestManager()
	run.Stub("xcrun simctl list devices --json", cmdexec.Result{Stdout: deviceListJSON})

	det, err := m.Details(context.Background(), "AAAA-1111")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if det.Name != "iPhone 15" || det.RuntimeVersion != "iOS 17.0" {
		t.Fatalf("det = %+v", det)
	}
	if det.Path == "" {
		t.Fatal("Path not populated")
	}

	if _, err := m.Details(context.Background(), "nope"); err == nil {
		t.Fatal("Details of unknown simulator succeeded")
	}
}

func TestStreamLogsParsesCompactStyle(t *testing.T) {
	m, run := newTestManager()
	run.StubStream("xcrun simctl spawn AAAA-1111 log stream --style compact",
		"Filtering the log data",
		"2026-01-02 03:04:05.678 E SpringBoard[123:456] crashed hard",
		"2026-01-02 03:04:05.679 Df locationd[124:457] fix acquired",
	)

	var lines []device.LogLine
	err := m.StreamLogs(context.Background(), "AAAA-1111", func(l device.LogLine) {
		lines = append(lines, l)
	})
	if err != nil {
		t.Fatalf("StreamLogs: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (header dropped)", len(lines))
	}
	if lines[0].Level != "error" || !strings.Contains(lines[0].Message, "crashed hard") {
		t.Fatalf("lines[0] = %+v", lines[0])
	}
	if lines[0].Platform != device.IOS || lines[0].DeviceID != "AAAA-1111" {
		t.Fatalf("lines[0] tag = %v/%s, want ios/AAAA-1111", lines[0].Platform, lines[0].DeviceID)
	}
	if lines[1].Level != "debug" {
		t.Fatalf("lines[1] = %+v", lines[1])
	}
}

func TestCreateOptions(t *testing.T) {
	m, run := newTestManager()
	run.Stub("xcrun simctl list devicetypes --json", cmdexec.Result{Stdout: `{
  "devicetypes": [
    {"name": "iPhone 15", "identifier": "com.apple.CoreSimulator.SimDeviceType.iPhone-15"},
    {"name": "iPad Pro 11 inch", "identifier": "com.apple.CoreSimulator.SimDeviceType.iPad-Pro-11-inch"},
    {"name": "Apple Watch Series 9", "identifier": "com.apple.CoreSimulator.SimDeviceType.Apple-Watch-Series-9"}
  ]
}`})
	run.Stub("xcrun simctl list runtimes --json", cmdexec.Result{Stdout: `{
  "runtimes": [
    {"name": "iOS 16.4", "identifier": "com.apple.CoreSimulator.SimRuntime.iOS-16-4", "isAvailable": true},
    {"name": "iOS 17.0", "identifier": "com.apple.CoreSimulator.SimRuntime.iOS-17-0", "isAvailable": true},
    {"name": "watchOS 10.0", "identifier": "com.apple.CoreSimulator.SimRuntime.watchOS-10-0", "isAvailable": true},
    {"name": "iOS 15.0", "identifier": "com.apple.CoreSimulator.SimRuntime.iOS-15-0", "isAvailable": false}
  ]
}`})

	opts, err := m.CreateOptions(context.Background())
	if err != nil {
		t.Fatalf("CreateOptions: %v", err)
	}
	if len(opts.DeviceTypes) != 2 {
		t.Fatalf("device types = %v, want watch filtered", opts.DeviceTypes)
	}
	if opts.DeviceTypes[1].Display != `iPad Pro 11"` {
		t.Fatalf("display = %q, want inch abbreviated", opts.DeviceTypes[1].Display)
	}
	if len(opts.Versions) != 2 {
		t.Fatalf("versions = %v, want watchOS and unavailable filtered", opts.Versions)
	}
	if opts.Versions[0].Display != "iOS 17.0" {
		t.Fatalf("versions[0] = %+v, want newest first", opts.Versions[0])
	}
}

func TestParseState(t *testing.T) {
	cases := []struct {
		in   string
		want device.Status
	}{
		{"Booted", device.StatusRunning},
		{"Shutdown", device.StatusStopped},
		{"Booting", device.StatusStarting},
		{"Shutting Down", device.StatusStopping},
		{"Creating", device.StatusCreating},
		{"weird", device.StatusUnknown},
	}
	for _, tc := range cases {
		if got := parseState(tc.in); got != tc.want {
			t.Errorf("parseState(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
