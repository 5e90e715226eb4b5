package ui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/passport/internal/prefs"
	"github.com/five82/passport/internal/registry"
	"github.com/five82/passport/internal/restcountries"
	"github.com/five82/passport/internal/visits"
)

// inputMode selects what the bottom text input is editing.
type inputMode int

const (
	modeBrowse inputMode = iota
	modeSearch
	modeDate
	modePhotos
)

type noticeLevel int

const (
	noticeInfo noticeLevel = iota
	noticeWarn
	noticeError
)

// UsageReporter reports bytes stored and the storage quota;
// kvstore.Backend satisfies it.
type UsageReporter interface {
	Usage(ctx context.Context) (used, quota int64, err error)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Tracker   *visits.Tracker
	Storage   UsageReporter // optional; enables the storage meter
	Countries []registry.Country
	Prefs     prefs.Prefs
	PrefsPath string
	Logger    *slog.Logger

	// RefreshFacts drops cached country facts and starts a new fetch.
	// Results arrive as MetaMsg or MetaErrorMsg. It may block.
	RefreshFacts func()
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx          context.Context
	tracker      *visits.Tracker
	storage      UsageReporter
	refreshFacts func()
	countries    []registry.Country
	regions      []string // index 0 is "All"
	prefs        prefs.Prefs
	prefsPath    string
	logger       *slog.Logger

	theme    Theme
	keys     keyMap
	width    int
	height   int
	ready    bool
	showHelp bool

	// Browse state
	regionIdx   int
	query       string
	visitedOnly bool
	cursor      int
	photoIdx    int

	// Bottom input
	mode  inputMode
	input textinput.Model

	detail viewport.Model

	snapshot visits.Snapshot
	meta     map[visits.Code]restcountries.Meta
	metaNote string

	notice      string
	noticeLevel noticeLevel
	ingesting   visits.Code

	usedBytes  int64
	quotaBytes int64
	usageKnown bool
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	countries := opts.Countries
	if countries == nil {
		countries = registry.Default()
	}

	input := textinput.New()
	input.CharLimit = 1024

	m := Model{
		ctx:          ctx,
		tracker:      opts.Tracker,
		storage:      opts.Storage,
		refreshFacts: opts.RefreshFacts,
		countries:    countries,
		regions:      append([]string{"All"}, registry.Regions(countries)...),
		prefs:        opts.Prefs,
		prefsPath:    opts.PrefsPath,
		logger:       logger.With("component", "ui"),
		theme:        GetTheme(opts.Prefs.Theme),
		keys:         DefaultKeyMap(),
		input:        input,
		detail:       viewport.New(0, 0),
		metaNote:     "Loading country facts...",
	}
	for i, r := range m.regions {
		if i > 0 && strings.EqualFold(r, opts.Prefs.Region) {
			m.regionIdx = i
		}
	}
	m.visitedOnly = opts.Prefs.VisitedOnly
	if m.tracker != nil {
		m.snapshot = m.tracker.Snapshot()
		m.syncStorage()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.EnterAltScreen
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layoutDetail()
		return m, nil

	case MetaMsg:
		m.meta = msg.Meta
		m.metaNote = ""
		m.refreshDetail()
		return m, nil

	case MetaErrorMsg:
		m.metaNote = "Country facts unavailable, retrying in " + msg.Retry.Round(time.Second).String()
		m.refreshDetail()
		return m, nil

	case ingestDoneMsg:
		return m.handleIngestDone(msg), nil
	}

	if m.mode != modeBrowse {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 3)

	listWidth := m.listWidth()
	list := m.renderList(listWidth, bodyHeight)
	detail := m.renderDetail(max(m.width-listWidth, 10), bodyHeight)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, list, detail),
		footer,
	)
}

func (m Model) listWidth() int {
	if m.width < LayoutCompactWidth {
		return m.width / 2
	}
	return min(m.width/2, 56)
}

// setNotice replaces the single notice line.
func (m *Model) setNotice(level noticeLevel, text string) {
	m.noticeLevel = level
	m.notice = text
}

// syncStorage mirrors the tracker's persistence status and the storage
// meter. A successful save clears an earlier storage notice but keeps
// unrelated ones.
func (m *Model) syncStorage() {
	m.refreshUsage()
	if m.tracker == nil {
		return
	}
	status := m.tracker.Status()
	if note := status.Notice(); note != "" {
		m.setNotice(noticeError, note)
		return
	}
	if m.noticeLevel == noticeError {
		m.setNotice(noticeInfo, "")
	}
}

func (m *Model) refreshUsage() {
	if m.storage == nil {
		return
	}
	used, quota, err := m.storage.Usage(m.ctx)
	if err != nil {
		m.logger.Warn("storage usage unavailable", "error", err)
		m.usageKnown = false
		return
	}
	m.usedBytes, m.quotaBytes, m.usageKnown = used, quota, true
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	m.prefs.Theme = m.theme.Name
	m.prefs.Region = ""
	if m.regionIdx > 0 {
		m.prefs.Region = m.regions[m.regionIdx]
	}
	m.prefs.VisitedOnly = m.visitedOnly
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("prefs not saved", "error", err)
	}
}

// Messages

// MetaMsg delivers country facts once they are available.
type MetaMsg struct {
	Meta map[visits.Code]restcountries.Meta
}

// MetaErrorMsg reports a failed facts fetch and when it will be retried.
type MetaErrorMsg struct {
	Err   error
	Retry time.Duration
}

// NewProgram builds the Bubble Tea program. Callers may Send MetaMsg and
// MetaErrorMsg to it from other goroutines.
func NewProgram(opts Options) *tea.Program {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(opts.Context))
}
