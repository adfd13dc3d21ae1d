package android

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mwfern/vmdeck/internal/device"
)

// avdInfo is one entry parsed from `avdmanager list avd`.
type avdInfo struct {
	Name          string
	DeviceID      string
	DeviceDisplay string
	Path          string
	Target        string
}

var (
	avdNameRe   = regexp.MustCompile(`^Name:\s+(.+)$`)
	avdDeviceRe = regexp.MustCompile(`^Device:\s+(\S+)(?:\s+\((.+)\))?$`)
	avdPathRe   = regexp.MustCompile(`^Path:\s+(.+)$`)
	avdTargetRe = regexp.MustCompile(`^Target:\s+(.+)$`)
	basedOnRe   = regexp.MustCompile(`^Based on:\s+Android\s+(\S+)`)

	sysdirAPIRe = regexp.MustCompile(`android-(\d+)`)
	devDefIDRe  = regexp.MustCompile(`^id:\s+\d+\s+or\s+"(.+)"$`)
	sysImageRe  = regexp.MustCompile(`system-images;android-(\d+);`)

	logcatRe = regexp.MustCompile(`^\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}\.\d+\s+([VDIWEF])/(.*)$`)
)

// parseAVDList walks the indented key/value blocks that `avdmanager list
// avd` prints, one block per AVD, separated by dashed lines.
func parseAVDList(out string) []avdInfo {
	var infos []avdInfo
	var cur *avdInfo

	flush := func() {
		if cur != nil && cur.Name != "" {
			infos = append(infos, *cur)
		}
		cur = nil
	}

	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "---") {
			flush()
			continue
		}
		switch {
		case avdNameRe.MatchString(line):
			flush()
			cur = &avdInfo{Name: avdNameRe.FindStringSubmatch(line)[1]}
		case cur == nil:
			// Preamble such as "Available Android Virtual Devices:".
		case avdDeviceRe.MatchString(line):
			m := avdDeviceRe.FindStringSubmatch(line)
			cur.DeviceID = m[1]
			cur.DeviceDisplay = m[2]
		case avdPathRe.MatchString(line):
			cur.Path = avdPathRe.FindStringSubmatch(line)[1]
		case avdTargetRe.MatchString(line):
			cur.Target = avdTargetRe.FindStringSubmatch(line)[1]
		case basedOnRe.MatchString(line):
			cur.Target += " " + line
		}
	}
	flush()
	return infos
}

// parseDeviceDefinitions extracts (id, name) pairs from
// `avdmanager list device` output.
func parseDeviceDefinitions(out string) []device.Option {
	var opts []device.Option
	var pendingID string
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if m := devDefIDRe.FindStringSubmatch(line); m != nil {
			pendingID = m[1]
			continue
		}
		if pendingID != "" && strings.HasPrefix(line, "Name:") {
			name := strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			opts = append(opts, device.Option{ID: pendingID, Display: name})
			pendingID = ""
		}
	}
	return opts
}

// parseSystemImageLevels extracts the distinct API levels of installed
// system image packages from sdkmanager output.
func parseSystemImageLevels(out string) []int {
	seen := map[int]bool{}
	for _, m := range sysImageRe.FindAllStringSubmatch(out, -1) {
		if api, err := strconv.Atoi(m[1]); err == nil {
			seen[api] = true
		}
	}
	levels := make([]int, 0, len(seen))
	for api := range seen {
		levels = append(levels, api)
	}
	sort.Ints(levels)
	return levels
}

// parseLogcatLine parses one `logcat -v time` line. Lines that do not
// match the format (chatter, separators) are dropped.
func parseLogcatLine(line, deviceID string) (device.LogLine, bool) {
	m := logcatRe.FindStringSubmatch(line)
	if m == nil {
		return device.LogLine{}, false
	}
	var level string
	switch m[1] {
	case "E", "F":
		level = "error"
	case "W":
		level = "warn"
	case "I":
		level = "info"
	default:
		level = "debug"
	}
	return device.LogLine{
		Platform: device.Android,
		DeviceID: deviceID,
		Level:    level,
		Message:  strings.TrimSpace(m[2]),
		Time:     time.Now(),
	}, true
}

var versionNames = map[int]string{
	35: "15",
	34: "14",
	33: "13",
	32: "12L",
	31: "12",
	30: "11",
	29: "10",
	28: "9",
	27: "8.1",
	26: "8.0",
}

// apiDisplay renders an API level the way the create form shows it.
func apiDisplay(api int) string {
	if name, ok := versionNames[api]; ok {
		return fmt.Sprintf("API %d - Android %s", api, name)
	}
	return fmt.Sprintf("API %d", api)
}

func apiLevelFromSysdir(sysdir string) int {
	if m := sysdirAPIRe.FindStringSubmatch(sysdir); m != nil {
		api, _ := strconv.Atoi(m[1])
		return api
	}
	return 0
}

// apiLevelFromTarget recovers the API level from a target line such as
// "Google APIs (Google Inc.) Based on: Android 14.0 ...".
func apiLevelFromTarget(target string) int {
	m := basedOnRe.FindStringSubmatch(strings.TrimSpace(stripBefore(target, "Based on:")))
	if m == nil {
		return 0
	}
	for api, name := range versionNames {
		if name == m[1] {
			return api
		}
	}
	version := strings.TrimSuffix(m[1], ".0")
	for api, name := range versionNames {
		if name == version {
			return api
		}
	}
	major := strings.SplitN(version, ".", 2)[0]
	for api, name := range versionNames {
		if name == major {
			return api
		}
	}
	return 0
}

func stripBefore(s, marker string) string {
	if i := strings.Index(s, marker); i >= 0 {
		return s[i:]
	}
	return ""
}

// readConfigINI parses an AVD config.ini into a key/value map. A missing
// or unreadable file yields nil.
func readConfigINI(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	cfg := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		cfg[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return cfg
}

// tuneConfigINI rewrites sizing and display name keys after creation.
// Failures are non-fatal; the AVD works with avdmanager's defaults.
func tuneConfigINI(path, displayName string, ramMB, storageMB int) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	set := map[string]string{}
	if displayName != "" {
		set["avd.ini.displayname"] = displayName
	}
	if ramMB > 0 {
		set["hw.ramSize"] = strconv.Itoa(ramMB)
	}
	if storageMB > 0 {
		set["disk.dataPartition.size"] = fmt.Sprintf("%dM", storageMB)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i, line := range lines {
		k, _, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key := strings.TrimSpace(k)
		if v, ok := set[key]; ok {
			lines[i] = key + "=" + v
			delete(set, key)
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, k+"="+set[k])
	}

	_ = os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

// parseMB converts config.ini size values like "2048", "8192M" or "8G"
// to megabytes.
func parseMB(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	mult := 1
	switch {
	case strings.HasSuffix(v, "G"):
		mult = 1024
		v = strings.TrimSuffix(v, "G")
	case strings.HasSuffix(v, "M"):
		v = strings.TrimSuffix(v, "M")
	case strings.HasSuffix(v, "MB"):
		v = strings.TrimSuffix(v, "MB")
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n * mult
}
