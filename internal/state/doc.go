// Package state holds the shared application state: device inventories,
// selection and focus, modal state, the log ring buffer, notifications and
// the detail cache. A single mutex serializes every mutation; background
// tasks and the event loop write through the same Store and the renderer
// reads consistent snapshots.
package state
