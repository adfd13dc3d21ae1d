// Package tasks coordinates cancellable background work. Each logical slot
// holds at most one live task; starting a new one cancels its predecessor,
// which is also the mechanism behind debounced scheduling.
package tasks
