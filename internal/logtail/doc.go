// Package logtail reads the tail of vmdeck's own diagnostic log file.
//
// While the dashboard runs it owns the terminal, so diagnostics go to a
// file under the user cache directory. This package extracts the last N
// lines of that file without loading it whole, using a ring buffer, and
// can filter lines by the console encoder's level token. The logs
// subcommand is the consumer.
package logtail
