// Package app wires the vmdeck application together: configuration,
// backends, the shared state store, the task coordinator, and the UI.
//
// Its Actions type is the intent layer the UI calls into. UI handlers
// never touch a backend directly; they flip synchronous state (pending
// flags, transient statuses, modal transitions) and hand the blocking
// work to the coordinator. Results come back through the store, where
// tag checks drop anything that arrives after its selection was
// superseded.
package app
