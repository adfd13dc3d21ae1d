package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mwfern/vmdeck/internal/cmdexec"
	"github.com/mwfern/vmdeck/internal/config"
	"github.com/mwfern/vmdeck/internal/device"
	"github.com/mwfern/vmdeck/internal/device/android"
	"github.com/mwfern/vmdeck/internal/device/ios"
	"github.com/mwfern/vmdeck/internal/logging"
	"github.com/mwfern/vmdeck/internal/prefs"
	"github.com/mwfern/vmdeck/internal/state"
	"github.com/mwfern/vmdeck/internal/tasks"
	"github.com/mwfern/vmdeck/internal/ui"
)

// Options configure the vmdeck application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/vmdeck/prefs.toml
}

// Run boots the vmdeck dashboard until the context is cancelled or the
// user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	userPrefs, _ := prefs.Load(opts.PrefsPath)

	store := state.NewStore(state.Options{
		LogCapacity:     cfg.LogCapacity,
		DetailTTL:       cfg.DetailTTL,
		NotificationTTL: cfg.NotificationTTL,
	})
	if p, err := device.ParsePlatform(userPrefs.LastPlatform); err == nil {
		store.SetActive(p)
	}

	coord := tasks.New(ctx, func(slot tasks.Slot, v any) {
		store.NotifyError(fmt.Sprintf("background %s task failed", slot))
		logging.Error("task panicked", zap.Stringer("slot", slot), zap.Any("panic", v))
	})

	runner := cmdexec.ExecRunner{}
	actions := NewActions(ctx, store, coord, cfg,
		android.New(runner, cfg.AndroidSDKRoot),
		ios.New(runner),
	)

	// Populate the panels before the first frame, then keep them fresh.
	actions.RefreshAll()
	actions.StartRefresher(cfg.RefreshInterval)

	uiErr := ui.Run(ui.Options{
		Context:   ctx,
		Store:     store,
		Actions:   actions,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
	})

	actions.Shutdown()
	return uiErr
}
