package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwfern/vmdeck/internal/prefs"
	"github.com/mwfern/vmdeck/internal/state"
)

const tickInterval = 80 * time.Millisecond

// Options configure the terminal UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Actions   Actions
	ThemeName string
	PrefsPath string
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	store   *state.Store
	actions Actions

	theme   Theme
	styles  Styles
	spinner spinner.Model

	prefsPath string

	width  int
	height int

	snapshot state.Snapshot
	quitting bool
}

type tickMsg time.Time

type snapshotMsg state.Snapshot

// New creates the UI model.
func New(opts Options) Model {
	theme := GetTheme(opts.ThemeName)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))
	return Model{
		store:     opts.Store,
		actions:   opts.Actions,
		theme:     theme,
		styles:    theme.Styles(),
		spinner:   sp,
		prefsPath: opts.PrefsPath,
		snapshot:  opts.Store.Snapshot(),
	}
}

// Init starts the refresh tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), fetchSnapshotCmd(m.store), m.spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetchSnapshotCmd(m.store), tickCmd())

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// refresh re-reads the store immediately after a key mutates it, so the
// next frame reflects the change without waiting for the tick.
func (m *Model) refresh() {
	m.snapshot = m.store.Snapshot()
}

func (m *Model) cycleTheme() {
	next := NextTheme(m.theme.Name)
	m.theme = GetTheme(next)
	m.styles = m.theme.Styles()
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
	m.savePrefs()
}

// savePrefs persists the theme and the focused platform, so the next
// session starts where this one left off.
func (m *Model) savePrefs() {
	p, _ := prefs.Load(m.prefsPath)
	p.Theme = m.theme.Name
	p.LastPlatform = m.store.Active().String()
	_ = prefs.Save(m.prefsPath, p)
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the UI and blocks until the user quits or the context is
// cancelled.
func Run(opts Options) error {
	m := New(opts)
	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		progOpts = append(progOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, progOpts...)
	_, err := p.Run()
	if err == tea.ErrProgramKilled {
		// Context cancellation is a clean shutdown, not a failure.
		return nil
	}
	return err
}
