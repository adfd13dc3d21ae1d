package ui

import "github.com/mwfern/vmdeck/internal/device"

// Actions is what the UI needs from the application layer. Every method
// returns immediately; results arrive through the state store and show
// up in the next snapshot.
type Actions interface {
	RefreshAll()
	Start(p device.Platform, id, name string)
	Stop(p device.Platform, id, name string)
	Delete(p device.Platform, id, name string)
	Wipe(p device.Platform, id, name string)
	OpenCreateForm()
	SubmitCreate()
	// SelectionChanged schedules the debounced detail fetch and log
	// retarget for the newly selected device.
	SelectionChanged()
	Shutdown()
}
