package state

import (
	"errors"
	"sync"
	"time"

	"github.com/mwfern/vmdeck/internal/device"
)

// Mode is the modal state of the navigation machine. Browsing is the
// default; every modal resolves back to it.
type Mode int

const (
	ModeBrowse Mode = iota
	ModeCreate
	ModeConfirmDelete
	ModeConfirmWipe
	ModeHelp
	ModeLogs // fullscreen log view
)

// NoteLevel classifies a notification.
type NoteLevel int

const (
	NoteSuccess NoteLevel = iota
	NoteError
	NoteWarning
	NoteInfo
)

// Notification is a short, time-limited user-visible message.
type Notification struct {
	Level   NoteLevel
	Message string
	Time    time.Time
	// ExpiresAt zero means the notification never expires on its own.
	ExpiresAt time.Time
}

func (n Notification) expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && now.After(n.ExpiresAt)
}

// OpKind names a device lifecycle operation.
type OpKind int

const (
	OpStart OpKind = iota
	OpStop
	OpCreate
	OpDelete
	OpWipe
)

func (k OpKind) String() string {
	switch k {
	case OpStart:
		return "start"
	case OpStop:
		return "stop"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	default:
		return "wipe"
	}
}

// PendingOp records an operation in flight for one device.
type PendingOp struct {
	Platform device.Platform
	DeviceID string
	Kind     OpKind
	Since    time.Time
}

// Confirm is a pending yes/no dialog blocking all other intents.
type Confirm struct {
	Kind       OpKind // OpDelete or OpWipe
	Platform   device.Platform
	DeviceID   string
	DeviceName string
}

// Tag identifies which device a cached value or log stream belongs to.
type Tag struct {
	Platform device.Platform
	ID       string
}

func (t Tag) zero() bool { return t.ID == "" }

var errNoForm = errors.New("no form open")

// Options tunes the store. Zero values fall back to the defaults below.
type Options struct {
	LogCapacity      int
	MaxNotifications int
	DetailTTL        time.Duration
	NotificationTTL  time.Duration
}

const (
	defaultLogCapacity      = 1000
	defaultMaxNotifications = 10
	defaultDetailTTL        = 5 * time.Minute
	defaultNotificationTTL  = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.LogCapacity <= 0 {
		o.LogCapacity = defaultLogCapacity
	}
	if o.MaxNotifications <= 0 {
		o.MaxNotifications = defaultMaxNotifications
	}
	if o.DetailTTL <= 0 {
		o.DetailTTL = defaultDetailTTL
	}
	if o.NotificationTTL <= 0 {
		o.NotificationTTL = defaultNotificationTTL
	}
	return o
}

type panelState struct {
	devices  []device.Device
	selected int
	loading  bool
	lastErr  string
}

// Store is the single source of truth shared by the event loop and every
// background task. All mutations take the one mutex for a short,
// non-blocking critical section; Snapshot returns an independent copy.
type Store struct {
	mu   sync.Mutex
	opts Options

	active device.Platform
	mode   Mode

	panels [2]panelState

	logs       *logRing
	logTag     Tag
	logFilter  string
	logScroll  int
	autoScroll bool

	notes   []Notification
	pending *PendingOp

	detail    *device.Details
	detailTag Tag
	detailAt  time.Time

	form    *Form
	confirm *Confirm

	lastRefresh time.Time
}

// NewStore builds a store with the given tuning options.
func NewStore(opts Options) *Store {
	opts = opts.withDefaults()
	s := &Store{
		opts:       opts,
		logs:       newLogRing(opts.LogCapacity),
		autoScroll: true,
	}
	s.panels[device.Android].loading = true
	s.panels[device.IOS].loading = true
	return s
}

// wrap is the Euclidean modulo used for all circular navigation, so that
// negative deltas wrap the same way repeated single steps do.
func wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// --- selection and focus ---

// SelectNext moves the focused panel's selection down one, wrapping.
func (s *Store) SelectNext() { s.MoveBy(1) }

// SelectPrev moves the focused panel's selection up one, wrapping.
func (s *Store) SelectPrev() { s.MoveBy(-1) }

// MoveBy applies steps wrapped moves in one call. The result equals
// |steps| single-step moves but the detail cache is checked once.
func (s *Store) MoveBy(steps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	panel := &s.panels[s.active]
	n := len(panel.devices)
	if n == 0 {
		return
	}
	panel.selected = wrap(panel.selected+steps, n)
	s.invalidateDetailLocked()
}

// SelectFirst jumps to the top of the focused list.
func (s *Store) SelectFirst() {
	s.mu.Lock()
	defer s.mu.Unlock()
	panel := &s.panels[s.active]
	if len(panel.devices) == 0 {
		return
	}
	panel.selected = 0
	s.invalidateDetailLocked()
}

// SelectLast jumps to the bottom of the focused list.
func (s *Store) SelectLast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	panel := &s.panels[s.active]
	n := len(panel.devices)
	if n == 0 {
		return
	}
	panel.selected = n - 1
	s.invalidateDetailLocked()
}

// SwitchPanel toggles which platform panel has focus. Focus cycling works
// regardless of list emptiness.
func (s *Store) SwitchPanel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = s.active.Toggle()
	s.invalidateDetailLocked()
}

// SetActive focuses the given platform panel. Used at startup to
// restore the last focused platform from preferences.
func (s *Store) SetActive(p device.Platform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = p
	s.invalidateDetailLocked()
}

// Active returns the focused platform.
func (s *Store) Active() device.Platform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Mode returns the current modal state.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SelectedDevice returns the focused panel's selected device, if any.
func (s *Store) SelectedDevice() (device.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Store) selectedLocked() (device.Device, bool) {
	panel := &s.panels[s.active]
	if len(panel.devices) == 0 {
		return device.Device{}, false
	}
	if panel.selected >= len(panel.devices) {
		// Defensive clamp; SetDevices keeps this invariant already.
		panel.selected = len(panel.devices) - 1
	}
	return panel.devices[panel.selected], true
}

func (s *Store) selectionTagLocked() Tag {
	d, ok := s.selectedLocked()
	if !ok {
		return Tag{}
	}
	return Tag{Platform: d.Platform, ID: d.ID}
}

// --- device lists ---

// SetDevices replaces a platform's device list. Selection follows the
// previously selected device identity when it still exists, otherwise it
// clamps to the new length (0 when the list is empty).
func (s *Store) SetDevices(p device.Platform, devs []device.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	panel := &s.panels[p]

	var oldID string
	if len(panel.devices) > 0 && panel.selected < len(panel.devices) {
		oldID = panel.devices[panel.selected].ID
	}

	panel.devices = append([]device.Device(nil), devs...)
	panel.loading = false
	panel.lastErr = ""
	s.lastRefresh = time.Now()

	switch {
	case len(panel.devices) == 0:
		panel.selected = 0
	default:
		idx := -1
		if oldID != "" {
			for i, d := range panel.devices {
				if d.ID == oldID {
					idx = i
					break
				}
			}
		}
		if idx >= 0 {
			panel.selected = idx
		} else if panel.selected >= len(panel.devices) {
			panel.selected = len(panel.devices) - 1
		}
	}
	s.invalidateDetailLocked()
}

// SetListError records a failed refresh for one platform. The previous
// device list is kept for display.
func (s *Store) SetListError(p device.Platform, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[p].loading = false
	s.panels[p].lastErr = msg
}

// SetDeviceStatus updates one device's status in place (starting,
// stopping, error). Unknown ids are ignored.
func (s *Store) SetDeviceStatus(p device.Platform, id string, status device.Status, errDetail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	panel := &s.panels[p]
	for i := range panel.devices {
		if panel.devices[i].ID == id {
			panel.devices[i].Status = status
			panel.devices[i].ErrorDetail = errDetail
			return
		}
	}
}

// --- pending operation flag ---

// SetPending marks an operation in flight. It returns false, leaving state
// unchanged, when another operation is already pending.
func (s *Store) SetPending(p device.Platform, id string, kind OpKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return false
	}
	s.pending = &PendingOp{Platform: p, DeviceID: id, Kind: kind, Since: time.Now()}
	return true
}

// ClearPending drops the pending-operation flag. Safe to call when nothing
// is pending.
func (s *Store) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// PendingFor reports whether an operation is in flight for the device.
func (s *Store) PendingFor(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil && s.pending.DeviceID == id
}

// --- detail cache ---

// SetDetail stores a fetched detail bag, but only when it still matches
// the current selection; a late result for a superseded selection is
// dropped and false is returned.
func (s *Store) SetDetail(d device.Details) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tag := Tag{Platform: d.Platform, ID: d.ID}
	if tag != s.selectionTagLocked() {
		return false
	}
	s.detail = &d
	s.detailTag = tag
	s.detailAt = time.Now()
	return true
}

// Detail returns the cached detail bag when its tag matches the current
// selection and the staleness window has not elapsed.
func (s *Store) Detail() (device.Details, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.detailLocked()
	if d == nil {
		return device.Details{}, false
	}
	return *d, true
}

func (s *Store) detailLocked() *device.Details {
	if s.detail == nil {
		return nil
	}
	if s.detailTag != s.selectionTagLocked() {
		return nil
	}
	if time.Since(s.detailAt) > s.opts.DetailTTL {
		return nil
	}
	return s.detail
}

// invalidateDetailLocked drops the cache when its tag no longer matches
// the current selection. Called after every selection or focus change.
func (s *Store) invalidateDetailLocked() {
	if s.detail != nil && s.detailTag != s.selectionTagLocked() {
		s.detail = nil
		s.detailTag = Tag{}
	}
}

// --- logs ---

// SetLogTarget retargets the log buffer to one device, clearing buffered
// lines from the previous device. Retargeting to the same device keeps
// the buffer.
func (s *Store) SetLogTarget(p device.Platform, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tag := Tag{Platform: p, ID: id}
	if tag == s.logTag {
		return
	}
	s.logTag = tag
	s.logs.clear()
	s.logScroll = 0
	s.autoScroll = true
}

// ClearLogTarget stops accepting device log lines.
func (s *Store) ClearLogTarget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logTag = Tag{}
	s.logs.clear()
}

// LogTarget returns the device whose logs are currently streamed.
func (s *Store) LogTarget() (Tag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logTag, !s.logTag.zero()
}

// AppendLog adds one log line. Lines tagged for any device other than the
// current log target are rejected, which keeps a late-arriving stream from
// leaking into another device's view. Returns whether the line was kept.
func (s *Store) AppendLog(line device.LogLine) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logTag.zero() || line.DeviceID != s.logTag.ID || line.Platform != s.logTag.Platform {
		return false
	}
	s.logs.push(line)
	if s.autoScroll {
		s.logScroll = s.logs.len() - 1
	}
	return true
}

// SetLogFilter restricts the visible log lines to one level; empty shows
// all levels.
func (s *Store) SetLogFilter(level string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logFilter = level
	s.logScroll = 0
}

// ScrollLogs moves the log view by delta lines. Scrolling away from the
// tail disables auto-scroll; scrolling back to it re-enables it.
func (s *Store) ScrollLogs(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := s.logs.len() - 1
	if max < 0 {
		max = 0
	}
	next := s.logScroll + delta
	if next < 0 {
		next = 0
	}
	if next > max {
		next = max
	}
	s.logScroll = next
	s.autoScroll = next >= max
}

// --- notifications ---

// Notify queues a user-visible notification with the configured TTL.
func (s *Store) Notify(level NoteLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.pruneNotesLocked(now)
	s.notes = append(s.notes, Notification{
		Level:     level,
		Message:   message,
		Time:      now,
		ExpiresAt: now.Add(s.opts.NotificationTTL),
	})
	if len(s.notes) > s.opts.MaxNotifications {
		s.notes = s.notes[len(s.notes)-s.opts.MaxNotifications:]
	}
}

func (s *Store) NotifySuccess(msg string) { s.Notify(NoteSuccess, msg) }
func (s *Store) NotifyError(msg string)   { s.Notify(NoteError, msg) }
func (s *Store) NotifyWarning(msg string) { s.Notify(NoteWarning, msg) }
func (s *Store) NotifyInfo(msg string)    { s.Notify(NoteInfo, msg) }

// DismissNotifications clears the queue.
func (s *Store) DismissNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = nil
}

// Expiry is lazy: pruning happens on the next state-touching operation,
// never on a timer of its own.
func (s *Store) pruneNotesLocked(now time.Time) {
	kept := s.notes[:0]
	for _, n := range s.notes {
		if !n.expired(now) {
			kept = append(kept, n)
		}
	}
	s.notes = kept
}

// --- modal transitions ---

// BeginCreate opens the create-device form. Only valid while browsing.
func (s *Store) BeginCreate(f *Form) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeBrowse {
		return false
	}
	s.form = f
	s.mode = ModeCreate
	return true
}

// BeginConfirm opens a delete or wipe confirmation for the selected
// device. Returns false when nothing is selected or a modal is open.
func (s *Store) BeginConfirm(kind OpKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeBrowse {
		return false
	}
	d, ok := s.selectedLocked()
	if !ok {
		return false
	}
	s.confirm = &Confirm{Kind: kind, Platform: d.Platform, DeviceID: d.ID, DeviceName: d.Name}
	if kind == OpWipe {
		s.mode = ModeConfirmWipe
	} else {
		s.mode = ModeConfirmDelete
	}
	return true
}

// ConfirmTarget returns the open confirmation, if any.
func (s *Store) ConfirmTarget() (Confirm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirm == nil {
		return Confirm{}, false
	}
	return *s.confirm, true
}

// OpenHelp shows the help overlay.
func (s *Store) OpenHelp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeBrowse {
		s.mode = ModeHelp
	}
}

// ToggleFullscreenLogs flips between browsing and the fullscreen log view.
func (s *Store) ToggleFullscreenLogs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.mode {
	case ModeBrowse:
		s.mode = ModeLogs
	case ModeLogs:
		s.mode = ModeBrowse
	}
}

// Dismiss resolves any modal back to browsing.
func (s *Store) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = nil
	s.confirm = nil
	s.mode = ModeBrowse
}

// --- form access ---

// WithForm runs fn against the open form under the store lock. It is a
// no-op when no form is open.
func (s *Store) WithForm(fn func(*Form)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.form != nil {
		fn(s.form)
	}
}

// FormConfig validates the open form and returns its creation config. On
// validation failure the form keeps its error text for display.
func (s *Store) FormConfig() (device.CreateConfig, device.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.form == nil {
		return device.CreateConfig{}, device.Android, errNoForm
	}
	cfg, err := s.form.Config()
	if err != nil {
		s.form.Err = err.Error()
		return device.CreateConfig{}, s.form.Platform, err
	}
	s.form.Err = ""
	return cfg, s.form.Platform, nil
}

// --- snapshot ---

// PanelSnapshot is one platform panel's render state.
type PanelSnapshot struct {
	Platform device.Platform
	Devices  []device.Device
	Selected int
	Loading  bool
	LastErr  string
}

// Snapshot is the renderer's consistent, independent view of the store.
type Snapshot struct {
	Active device.Platform
	Mode   Mode

	Panels [2]PanelSnapshot

	Logs       []device.LogLine
	LogTag     Tag
	LogFilter  string
	LogScroll  int
	AutoScroll bool

	Notifications []Notification
	Pending       *PendingOp
	Detail        *device.Details
	Form          *FormSnapshot
	Confirm       *Confirm

	LastRefresh time.Time
}

// ActivePanel returns the focused panel.
func (snap Snapshot) ActivePanel() PanelSnapshot { return snap.Panels[snap.Active] }

// SelectedDevice returns the focused panel's selected device, if any.
func (snap Snapshot) SelectedDevice() (device.Device, bool) {
	p := snap.ActivePanel()
	if len(p.Devices) == 0 || p.Selected >= len(p.Devices) {
		return device.Device{}, false
	}
	return p.Devices[p.Selected], true
}

// FilteredLogs applies the level filter.
func (snap Snapshot) FilteredLogs() []device.LogLine {
	if snap.LogFilter == "" {
		return snap.Logs
	}
	var out []device.LogLine
	for _, l := range snap.Logs {
		if l.Level == snap.LogFilter {
			out = append(out, l)
		}
	}
	return out
}

// Snapshot copies the current state for rendering. Expired notifications
// are pruned on the way out.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneNotesLocked(time.Now())

	snap := Snapshot{
		Active:      s.active,
		Mode:        s.mode,
		Logs:        s.logs.list(),
		LogTag:      s.logTag,
		LogFilter:   s.logFilter,
		LogScroll:   s.logScroll,
		AutoScroll:  s.autoScroll,
		LastRefresh: s.lastRefresh,
	}
	for p := range s.panels {
		snap.Panels[p] = PanelSnapshot{
			Platform: device.Platform(p),
			Devices:  append([]device.Device(nil), s.panels[p].devices...),
			Selected: s.panels[p].selected,
			Loading:  s.panels[p].loading,
			LastErr:  s.panels[p].lastErr,
		}
	}
	if len(s.notes) > 0 {
		snap.Notifications = append([]Notification(nil), s.notes...)
	}
	if s.pending != nil {
		p := *s.pending
		snap.Pending = &p
	}
	if d := s.detailLocked(); d != nil {
		copied := *d
		snap.Detail = &copied
	}
	if s.form != nil {
		snap.Form = s.form.snapshot()
	}
	if s.confirm != nil {
		c := *s.confirm
		snap.Confirm = &c
	}
	return snap
}
