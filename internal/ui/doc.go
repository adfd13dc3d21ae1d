// Package ui renders the vmdeck dashboard with Bubble Tea.
//
// The model holds no domain state of its own. Every frame renders a
// store snapshot; key handlers mutate the store synchronously or hand
// intent to the Actions layer and re-snapshot. A short tick keeps the
// view converging on background task results between key presses.
package ui
