package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mwfern/vmdeck/internal/config"
	"github.com/mwfern/vmdeck/internal/device"
	"github.com/mwfern/vmdeck/internal/logging"
	"github.com/mwfern/vmdeck/internal/state"
	"github.com/mwfern/vmdeck/internal/tasks"
)

// Actions is the intent layer between the UI and the backends. Every
// method returns quickly: state flags flip synchronously, the actual
// tool invocations run as coordinated background tasks.
type Actions struct {
	store *state.Store
	coord *tasks.Coordinator

	managers  map[device.Platform]device.Manager
	available map[device.Platform]bool

	detailDebounce time.Duration
	logDebounce    time.Duration

	defaultRAMMB     int
	defaultStorageMB int
}

// NewActions wires the store, coordinator, and platform backends.
// Availability is probed once here; an absent toolchain marks its panel
// with a persistent error instead of failing startup.
func NewActions(ctx context.Context, store *state.Store, coord *tasks.Coordinator, cfg config.Config, managers ...device.Manager) *Actions {
	a := &Actions{
		store:            store,
		coord:            coord,
		managers:         make(map[device.Platform]device.Manager, len(managers)),
		available:        make(map[device.Platform]bool, len(managers)),
		detailDebounce:   cfg.DetailDebounce,
		logDebounce:      cfg.LogDebounce,
		defaultRAMMB:     cfg.DefaultRAMMB,
		defaultStorageMB: cfg.DefaultStorageMB,
	}
	for _, m := range managers {
		a.managers[m.Platform()] = m
		probe, cancel := context.WithTimeout(ctx, 3*time.Second)
		ok := m.Available(probe)
		cancel()
		a.available[m.Platform()] = ok
		if !ok {
			store.SetListError(m.Platform(), m.Platform().Title()+" tooling not found")
			logging.Warn("platform unavailable", zap.String("platform", m.Platform().String()))
		}
	}
	return a
}

func refreshSlot(p device.Platform) tasks.Slot {
	if p == device.Android {
		return tasks.SlotRefreshAndroid
	}
	return tasks.SlotRefreshIOS
}

// RefreshAll re-polls every available platform's device list.
func (a *Actions) RefreshAll() {
	for p := range a.managers {
		a.RefreshPlatform(p)
	}
}

// RefreshPlatform re-polls one platform's device list in the background.
func (a *Actions) RefreshPlatform(p device.Platform) {
	mgr, ok := a.managers[p]
	if !ok || !a.available[p] {
		return
	}
	a.coord.Spawn(refreshSlot(p), func(ctx context.Context) {
		devices, err := mgr.List(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			a.store.SetListError(p, err.Error())
			logging.Warn("device list failed", zap.String("platform", p.String()), zap.Error(err))
			return
		}
		a.store.SetDevices(p, devices)
	})
}

// StartRefresher launches the periodic list refresh until shutdown.
func (a *Actions) StartRefresher(interval time.Duration) {
	a.coord.Go(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			a.RefreshAll()
		}
	})
}

// Start boots a device.
func (a *Actions) Start(p device.Platform, id, name string) {
	a.deviceOp(p, id, name, state.OpStart, device.StatusStarting, func(ctx context.Context) error {
		return a.managers[p].Start(ctx, id)
	})
}

// Stop shuts a device down.
func (a *Actions) Stop(p device.Platform, id, name string) {
	a.deviceOp(p, id, name, state.OpStop, device.StatusStopping, func(ctx context.Context) error {
		return a.managers[p].Stop(ctx, id)
	})
}

// Delete removes a device. Callers confirm first.
func (a *Actions) Delete(p device.Platform, id, name string) {
	a.deviceOp(p, id, name, state.OpDelete, device.StatusUnknown, func(ctx context.Context) error {
		return a.managers[p].Delete(ctx, id)
	})
}

// Wipe factory-resets a device. Callers confirm first.
func (a *Actions) Wipe(p device.Platform, id, name string) {
	a.deviceOp(p, id, name, state.OpWipe, device.StatusUnknown, func(ctx context.Context) error {
		return a.managers[p].Wipe(ctx, id)
	})
}

// deviceOp runs one lifecycle operation under the pending-operation flag.
// The flag is set before the task starts and cleared on every exit path,
// including panics, which the coordinator reports separately.
func (a *Actions) deviceOp(p device.Platform, id, name string, kind state.OpKind, transient device.Status, fn func(context.Context) error) {
	if _, ok := a.managers[p]; !ok {
		return
	}
	if !a.store.SetPending(p, id, kind) {
		a.store.NotifyWarning("another operation is already running")
		return
	}
	if transient == device.StatusStarting || transient == device.StatusStopping {
		a.store.SetDeviceStatus(p, id, transient, "")
	}
	a.coord.Go(func(ctx context.Context) {
		defer a.store.ClearPending()
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.store.SetDeviceStatus(p, id, device.StatusError, err.Error())
			a.store.NotifyError(fmt.Sprintf("%s %s: %v", kind, name, err))
			logging.Error("device operation failed",
				zap.String("op", kind.String()),
				zap.String("platform", p.String()),
				zap.String("device", id),
				zap.Error(err))
			return
		}
		a.store.NotifySuccess(fmt.Sprintf("%s %s succeeded", kind, name))
		a.RefreshPlatform(p)
	})
}

// OpenCreateForm opens the create form for the focused platform and
// fetches its options in the background.
func (a *Actions) OpenCreateForm() {
	p := a.store.Active()
	mgr, ok := a.managers[p]
	if !ok || !a.available[p] {
		a.store.NotifyWarning(p.Title() + " tooling is not available")
		return
	}
	ram, storage := 0, 0
	if p == device.Android {
		ram, storage = a.defaultRAMMB, a.defaultStorageMB
	}
	if !a.store.BeginCreate(state.NewForm(p, ram, storage)) {
		return
	}
	a.coord.Spawn(tasks.SlotFormOptions, func(ctx context.Context) {
		opts, err := mgr.CreateOptions(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			a.store.NotifyError(fmt.Sprintf("load create options: %v", err))
			return
		}
		a.store.WithForm(func(f *state.Form) { f.SetOptions(opts) })
	})
}

// SubmitCreate validates the open form and creates the device. On
// validation failure the form stays open showing its error.
func (a *Actions) SubmitCreate() {
	cfg, p, err := a.store.FormConfig()
	if err != nil {
		return
	}
	a.store.Dismiss()
	a.deviceOp(p, "", cfg.Name, state.OpCreate, device.StatusUnknown, func(ctx context.Context) error {
		return a.managers[p].Create(ctx, cfg)
	})
}

// SelectionChanged schedules the debounced follow-ups of a selection or
// focus move: the detail fetch and the log stream retarget. A burst of
// navigation keys collapses into one fetch per concern.
func (a *Actions) SelectionChanged() {
	a.scheduleDetail()
	a.retargetLogs()
}

func (a *Actions) scheduleDetail() {
	d, ok := a.store.SelectedDevice()
	if !ok {
		a.coord.Cancel(tasks.SlotDetail)
		return
	}
	if _, fresh := a.store.Detail(); fresh {
		return
	}
	mgr := a.managers[d.Platform]
	if mgr == nil {
		return
	}
	a.coord.SpawnAfter(tasks.SlotDetail, a.detailDebounce, func(ctx context.Context) {
		det, err := mgr.Details(ctx, d.ID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logging.Debug("detail fetch failed", zap.String("device", d.ID), zap.Error(err))
			return
		}
		// SetDetail re-checks the tag; a fetch for a superseded
		// selection is silently dropped here.
		a.store.SetDetail(det)
	})
}

func (a *Actions) retargetLogs() {
	d, ok := a.store.SelectedDevice()
	if !ok {
		a.coord.Cancel(tasks.SlotLogStream)
		a.store.ClearLogTarget()
		return
	}
	if tag, has := a.store.LogTarget(); has && tag.ID == d.ID && tag.Platform == d.Platform {
		return
	}
	mgr := a.managers[d.Platform]
	if mgr == nil {
		return
	}
	a.coord.SpawnAfter(tasks.SlotLogStream, a.logDebounce, func(ctx context.Context) {
		// The selection may have moved again while this task sat in the
		// debounce window; a stale retarget must not clear the buffer of
		// whatever the user is looking at now.
		cur, still := a.store.SelectedDevice()
		if !still || cur.ID != d.ID || cur.Platform != d.Platform {
			return
		}
		a.store.SetLogTarget(d.Platform, d.ID)
		if d.Status != device.StatusRunning {
			return
		}
		err := mgr.StreamLogs(ctx, d.ID, func(line device.LogLine) {
			a.store.AppendLog(line)
		})
		if err != nil && ctx.Err() == nil {
			logging.Debug("log stream ended", zap.String("device", d.ID), zap.Error(err))
		}
	})
}

// Shutdown cancels all background work and waits for it to drain.
func (a *Actions) Shutdown() {
	a.coord.Shutdown()
}
