// Package device defines the virtual device data model shared across the
// application and the backend contract both platform managers implement.
package device
