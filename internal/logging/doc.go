// Package logging provides structured logging for vmdeck.
//
// The package wraps a global zap logger. Logging is silent unless the
// VMDECK_LOG_LEVEL environment variable (or an explicit level) enables
// it, which keeps CLI output clean and the dashboard undisturbed.
//
// When the dashboard is running it owns the terminal, so enabled log
// output is written to a file under the user cache directory
// (~/.cache/vmdeck/vmdeck.log on Linux). Headless CLI commands log to
// stderr instead.
//
// Initialize at startup:
//
//	if err := logging.InitializeFromEnv(true); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// All logging functions are safe for concurrent use.
package logging
