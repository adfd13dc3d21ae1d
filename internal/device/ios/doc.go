// Package ios manages iOS simulators through `xcrun simctl`.
//
// Device discovery, lifecycle, and create options all use simctl's JSON
// output. Simulators are identified by UDID. Booting an already-booted
// simulator and shutting down an already-shutdown one are treated as
// success, matching how simctl reports those states.
//
// All external tool access goes through a cmdexec.Runner so tests can
// script simctl output on any host.
package ios
