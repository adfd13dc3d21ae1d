package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/mwfern/vmdeck/internal/device"
)

func androidDevices(n int) []device.Device {
	devs := make([]device.Device, n)
	for i := range devs {
		devs[i] = device.Device{
			Platform: device.Android,
			ID:       fmt.Sprintf("avd_%d", i),
			Name:     fmt.Sprintf("AVD %d", i),
			Status:   device.StatusStopped,
		}
	}
	return devs
}

func iosDevices(n int) []device.Device {
	devs := make([]device.Device, n)
	for i := range devs {
		devs[i] = device.Device{
			Platform: device.IOS,
			ID:       fmt.Sprintf("udid-%d", i),
			Name:     fmt.Sprintf("iPhone %d", i),
			Status:   device.StatusStopped,
		}
	}
	return devs
}

func selected(t *testing.T, s *Store) int {
	t.Helper()
	return s.Snapshot().ActivePanel().Selected
}

func TestSelectNextWrapsAfterFullCycle(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(5))

	for i := 0; i < 5; i++ {
		s.SelectNext()
	}
	if got := selected(t, s); got != 0 {
		t.Fatalf("after len moves selection = %d, want 0", got)
	}

	s.SelectPrev()
	if got := selected(t, s); got != 4 {
		t.Fatalf("SelectPrev from 0 = %d, want 4", got)
	}
}

func TestMoveByMatchesSingleSteps(t *testing.T) {
	const n = 7
	for _, steps := range []int{0, 1, 3, n, n + 2, -1, -3, -n, -n - 5, 100, -100} {
		batch := NewStore(Options{})
		batch.SetDevices(device.Android, androidDevices(n))
		single := NewStore(Options{})
		single.SetDevices(device.Android, androidDevices(n))

		batch.MoveBy(steps)
		count := steps
		if count < 0 {
			count = -count
		}
		for i := 0; i < count; i++ {
			if steps > 0 {
				single.SelectNext()
			} else {
				single.SelectPrev()
			}
		}

		if b, s := selected(t, batch), selected(t, single); b != s {
			t.Errorf("MoveBy(%d) = %d, single steps = %d", steps, b, s)
		}
	}
}

func TestNavigationOnEmptyListIsNoOp(t *testing.T) {
	s := NewStore(Options{})
	s.SelectNext()
	s.SelectPrev()
	s.MoveBy(42)
	s.SelectFirst()
	s.SelectLast()
	if got := selected(t, s); got != 0 {
		t.Fatalf("selection on empty list = %d, want 0", got)
	}

	// Tab still cycles focus with both lists empty.
	s.SwitchPanel()
	if s.Active() != device.IOS {
		t.Fatal("SwitchPanel did not change focus on empty lists")
	}
}

func TestSetDevicesClampsSelection(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(5))
	s.MoveBy(4)

	// Shrinking list clamps to the new tail.
	s.SetDevices(device.Android, androidDevices(2))
	snap := s.Snapshot()
	if snap.ActivePanel().Selected != 1 {
		t.Fatalf("selected = %d, want 1 after shrink", snap.ActivePanel().Selected)
	}
	if sel := snap.ActivePanel().Selected; sel >= len(snap.ActivePanel().Devices) {
		t.Fatalf("selected %d out of range %d", sel, len(snap.ActivePanel().Devices))
	}

	// Empty list resets.
	s.SetDevices(device.Android, nil)
	if got := selected(t, s); got != 0 {
		t.Fatalf("selected = %d, want 0 after empty replace", got)
	}

	// Repopulating keeps the invariant.
	s.SetDevices(device.Android, androidDevices(3))
	if got := selected(t, s); got >= 3 {
		t.Fatalf("selected = %d, out of range after repopulate", got)
	}
}

func TestSetDevicesPreservesSelectionByIdentity(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(4))
	s.MoveBy(2) // avd_2

	// New enumeration order: avd_2 moved to the front.
	reordered := []device.Device{
		{Platform: device.Android, ID: "avd_2", Name: "AVD 2"},
		{Platform: device.Android, ID: "avd_0", Name: "AVD 0"},
		{Platform: device.Android, ID: "avd_3", Name: "AVD 3"},
	}
	s.SetDevices(device.Android, reordered)

	d, ok := s.SelectedDevice()
	if !ok || d.ID != "avd_2" {
		t.Fatalf("selected device = %+v, want avd_2 (identity carry)", d)
	}
	if got := selected(t, s); got != 0 {
		t.Fatalf("selected index = %d, want 0", got)
	}
}

func TestLogRingBoundFIFO(t *testing.T) {
	s := NewStore(Options{LogCapacity: 1000})
	s.SetLogTarget(device.Android, "avd_0")

	for i := 0; i < 1500; i++ {
		s.AppendLog(device.LogLine{
			DeviceID: "avd_0",
			Level:    "info",
			Message:  fmt.Sprintf("line %d", i),
			Time:     time.Now(),
		})
	}

	logs := s.Snapshot().Logs
	if len(logs) != 1000 {
		t.Fatalf("log count = %d, want 1000", len(logs))
	}
	if logs[0].Message != "line 500" {
		t.Fatalf("oldest = %q, want line 500 (FIFO eviction)", logs[0].Message)
	}
	if logs[999].Message != "line 1499" {
		t.Fatalf("newest = %q, want line 1499", logs[999].Message)
	}
}

func TestLogRejectedForOtherDevice(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(2))
	s.SetLogTarget(device.Android, "avd_0")

	if s.AppendLog(device.LogLine{DeviceID: "avd_1", Level: "info", Message: "hello"}) {
		t.Fatal("log for avd_1 accepted while streaming avd_0")
	}
	for _, l := range s.Snapshot().Logs {
		if l.Message == "hello" {
			t.Fatal("leaked log line visible in buffer")
		}
	}

	if !s.AppendLog(device.LogLine{DeviceID: "avd_0", Level: "info", Message: "mine"}) {
		t.Fatal("log for active target rejected")
	}
}

func TestLogRejectedForSameIDOnOtherPlatform(t *testing.T) {
	s := NewStore(Options{})
	s.SetLogTarget(device.Android, "shared_id")

	if s.AppendLog(device.LogLine{Platform: device.IOS, DeviceID: "shared_id", Level: "info", Message: "imposter"}) {
		t.Fatal("line accepted despite platform mismatch")
	}
	if !s.AppendLog(device.LogLine{Platform: device.Android, DeviceID: "shared_id", Level: "info", Message: "mine"}) {
		t.Fatal("line with fully matching tag rejected")
	}
}

func TestSetActiveFocusesPanel(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(1))
	s.SetDevices(device.IOS, iosDevices(1))

	s.SetActive(device.IOS)
	if s.Active() != device.IOS {
		t.Fatalf("active = %v, want ios", s.Active())
	}
	d, ok := s.SelectedDevice()
	if !ok || d.Platform != device.IOS {
		t.Fatalf("selected device = %+v, want an ios device", d)
	}
}

func TestSetLogTargetClearsBuffer(t *testing.T) {
	s := NewStore(Options{})
	s.SetLogTarget(device.Android, "avd_0")
	s.AppendLog(device.LogLine{DeviceID: "avd_0", Level: "info", Message: "old"})

	// Same target keeps the buffer.
	s.SetLogTarget(device.Android, "avd_0")
	if len(s.Snapshot().Logs) != 1 {
		t.Fatal("retargeting to same device cleared the buffer")
	}

	s.SetLogTarget(device.IOS, "udid-1")
	if len(s.Snapshot().Logs) != 0 {
		t.Fatal("retargeting to another device kept stale lines")
	}
	if s.AppendLog(device.LogLine{DeviceID: "avd_0", Level: "info", Message: "late"}) {
		t.Fatal("line for previous target accepted after retarget")
	}
}

func TestLogFilter(t *testing.T) {
	s := NewStore(Options{})
	s.SetLogTarget(device.Android, "avd_0")
	s.AppendLog(device.LogLine{DeviceID: "avd_0", Level: "error", Message: "bad"})
	s.AppendLog(device.LogLine{DeviceID: "avd_0", Level: "info", Message: "fine"})
	s.SetLogFilter("error")

	logs := s.Snapshot().FilteredLogs()
	if len(logs) != 1 || logs[0].Message != "bad" {
		t.Fatalf("filtered logs = %+v, want only the error line", logs)
	}
}

func TestPendingFlagLifecycle(t *testing.T) {
	s := NewStore(Options{})
	if !s.SetPending(device.Android, "avd_0", OpDelete) {
		t.Fatal("first SetPending failed")
	}
	if s.SetPending(device.Android, "avd_0", OpStart) {
		t.Fatal("re-entrant operation accepted while one is pending")
	}
	if !s.PendingFor("avd_0") {
		t.Fatal("PendingFor(avd_0) = false")
	}

	s.ClearPending()
	first := s.Snapshot()
	s.ClearPending() // idempotent
	second := s.Snapshot()
	if first.Pending != nil || second.Pending != nil {
		t.Fatal("pending flag survived ClearPending")
	}
	if !s.SetPending(device.Android, "avd_0", OpStart) {
		t.Fatal("SetPending failed after clear")
	}
}

func TestDetailCacheTagMatch(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(3))

	if !s.SetDetail(device.Details{Platform: device.Android, ID: "avd_0", Name: "AVD 0"}) {
		t.Fatal("detail for current selection rejected")
	}
	if _, ok := s.Detail(); !ok {
		t.Fatal("cache miss immediately after store")
	}

	// Late result for a device that is no longer selected is dropped.
	s.SelectNext()
	if s.SetDetail(device.Details{Platform: device.Android, ID: "avd_0"}) {
		t.Fatal("stale detail for avd_0 accepted while avd_1 selected")
	}
	if _, ok := s.Detail(); ok {
		t.Fatal("cache hit for mismatched tag")
	}
}

func TestDetailCacheClearedBySelectionChange(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(3))
	s.SetDevices(device.IOS, iosDevices(2))
	s.SetDetail(device.Details{Platform: device.Android, ID: "avd_0"})

	// Switch to the other family and back to a different device.
	s.SwitchPanel()
	s.SwitchPanel()
	s.SelectNext()
	if _, ok := s.Detail(); ok {
		t.Fatal("cache hit after selection moved to a different device")
	}
}

func TestDetailCacheSurvivesFocusRoundTrip(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(3))
	s.SetDevices(device.IOS, iosDevices(2))
	s.SetDetail(device.Details{Platform: device.Android, ID: "avd_0"})

	s.SwitchPanel()
	s.SwitchPanel()
	if _, ok := s.Detail(); !ok {
		t.Fatal("cache lost although selection returned to the same device")
	}
}

func TestDetailCacheStaleness(t *testing.T) {
	s := NewStore(Options{DetailTTL: time.Millisecond})
	s.SetDevices(device.Android, androidDevices(1))
	s.SetDetail(device.Details{Platform: device.Android, ID: "avd_0"})

	time.Sleep(5 * time.Millisecond)
	if _, ok := s.Detail(); ok {
		t.Fatal("cache hit past the staleness window")
	}
}

func TestNotificationsExpireLazily(t *testing.T) {
	s := NewStore(Options{NotificationTTL: time.Millisecond})
	s.NotifyError("boom")
	if len(s.Snapshot().Notifications) != 1 {
		t.Fatal("notification missing right after push")
	}

	time.Sleep(5 * time.Millisecond)
	// Pruning is lazy: the next state-touching operation removes it.
	if got := s.Snapshot().Notifications; len(got) != 0 {
		t.Fatalf("expired notifications still visible: %+v", got)
	}
}

func TestNotificationQueueBound(t *testing.T) {
	s := NewStore(Options{MaxNotifications: 3, NotificationTTL: time.Hour})
	for i := 0; i < 6; i++ {
		s.NotifyInfo(fmt.Sprintf("n%d", i))
	}
	notes := s.Snapshot().Notifications
	if len(notes) != 3 {
		t.Fatalf("notification count = %d, want 3", len(notes))
	}
	if notes[0].Message != "n3" {
		t.Fatalf("oldest kept = %q, want n3", notes[0].Message)
	}
}

func TestModalCapturesNavigation(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(3))

	if !s.BeginConfirm(OpDelete) {
		t.Fatal("BeginConfirm failed with a selected device")
	}
	if s.Mode() != ModeConfirmDelete {
		t.Fatalf("mode = %v, want ModeConfirmDelete", s.Mode())
	}
	// A second modal cannot stack.
	if s.BeginConfirm(OpWipe) {
		t.Fatal("nested confirm accepted")
	}
	if s.BeginCreate(NewForm(device.Android, 0, 0)) {
		t.Fatal("create form opened over confirm dialog")
	}

	s.Dismiss()
	if s.Mode() != ModeBrowse {
		t.Fatalf("mode after dismiss = %v, want ModeBrowse", s.Mode())
	}
	if _, ok := s.ConfirmTarget(); ok {
		t.Fatal("confirm target survived dismiss")
	}
}

func TestBeginConfirmRequiresSelection(t *testing.T) {
	s := NewStore(Options{})
	if s.BeginConfirm(OpDelete) {
		t.Fatal("confirm opened with no devices")
	}
}

func TestFullscreenLogsToggle(t *testing.T) {
	s := NewStore(Options{})
	s.ToggleFullscreenLogs()
	if s.Mode() != ModeLogs {
		t.Fatalf("mode = %v, want ModeLogs", s.Mode())
	}
	s.ToggleFullscreenLogs()
	if s.Mode() != ModeBrowse {
		t.Fatalf("mode = %v, want ModeBrowse", s.Mode())
	}
}

func TestEndToEndWrapScenario(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(3))

	s.SelectNext()
	s.SelectNext()
	if got := selected(t, s); got != 2 {
		t.Fatalf("after two downs selection = %d, want 2", got)
	}
	s.SelectNext()
	if got := selected(t, s); got != 0 {
		t.Fatalf("after third down selection = %d, want 0 (wrap)", got)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewStore(Options{})
	s.SetDevices(device.Android, androidDevices(2))
	snap := s.Snapshot()
	snap.Panels[device.Android].Devices[0].Name = "mutated"

	if got := s.Snapshot().Panels[device.Android].Devices[0].Name; got == "mutated" {
		t.Fatal("snapshot shares device slice with store")
	}
}

func TestScrollLogsClampsAndTracksTail(t *testing.T) {
	s := NewStore(Options{})
	s.SetLogTarget(device.Android, "avd_0")
	for i := 0; i < 10; i++ {
		s.AppendLog(device.LogLine{DeviceID: "avd_0", Level: "info", Message: fmt.Sprintf("%d", i)})
	}

	s.ScrollLogs(-100)
	snap := s.Snapshot()
	if snap.LogScroll != 0 {
		t.Fatalf("scroll = %d, want clamp at 0", snap.LogScroll)
	}
	if snap.AutoScroll {
		t.Fatal("auto-scroll still on after scrolling away from tail")
	}

	s.ScrollLogs(100)
	snap = s.Snapshot()
	if snap.LogScroll != 9 {
		t.Fatalf("scroll = %d, want clamp at 9", snap.LogScroll)
	}
	if !snap.AutoScroll {
		t.Fatal("auto-scroll not restored at tail")
	}
}
