// Package cmdexec abstracts external process execution behind a Runner
// interface so device backends can be tested against scripted output.
package cmdexec
