// Package android manages Android virtual devices through the SDK
// command-line tools.
//
// Device lifecycle goes through avdmanager (list, create avd, delete
// avd), boot goes through the emulator binary, and running state plus
// log streaming go through adb. System image discovery for the create
// form uses sdkmanager.
//
// AVDs are identified by their AVD name, which doubles as the device ID
// throughout vmdeck. Running emulators are matched back to AVD names via
// the qemu boot properties, with the emulator console as a fallback,
// because adb only reports serials like "emulator-5554".
//
// All external tool access goes through a cmdexec.Runner so tests can
// script tool output without an SDK installed.
package android
