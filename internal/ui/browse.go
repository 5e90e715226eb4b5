package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/passport/internal/imagecomp"
	"github.com/five82/passport/internal/registry"
	"github.com/five82/passport/internal/visits"
)

// visible returns the countries matching the current region tab, search
// query and visited filter, in registry order.
func (m Model) visible() []registry.Country {
	region := ""
	if m.regionIdx > 0 {
		region = m.regions[m.regionIdx]
	}
	rows := registry.Filter(m.countries, region, m.query)
	if !m.visitedOnly {
		return rows
	}
	out := rows[:0:0]
	for _, c := range rows {
		if m.snapshot.Record(c.Code).Visited {
			out = append(out, c)
		}
	}
	return out
}

// selected returns the country under the cursor.
func (m Model) selected() (registry.Country, bool) {
	rows := m.visible()
	if len(rows) == 0 {
		return registry.Country{}, false
	}
	return rows[min(m.cursor, len(rows)-1)], true
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.mode != modeBrowse {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.flush()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-len(m.countries))
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(m.countries))

	case key.Matches(msg, m.keys.NextRegion):
		m.regionIdx = (m.regionIdx + 1) % len(m.regions)
		m.resetCursor()
		m.savePrefs()
	case key.Matches(msg, m.keys.PrevRegion):
		m.regionIdx = (m.regionIdx - 1 + len(m.regions)) % len(m.regions)
		m.resetCursor()
		m.savePrefs()
	case key.Matches(msg, m.keys.VisitedOnly):
		m.visitedOnly = !m.visitedOnly
		m.resetCursor()
		m.savePrefs()

	case key.Matches(msg, m.keys.Search):
		cmd := m.openInput(modeSearch, "/", m.query)
		return m, cmd

	case key.Matches(msg, m.keys.Toggle):
		if c, ok := m.selected(); ok {
			m.apply(func(ctx context.Context) (visits.Snapshot, error) {
				return m.tracker.ToggleVisited(ctx, c.Code)
			})
		}

	case key.Matches(msg, m.keys.EditDate):
		if c, ok := m.selected(); ok {
			cmd := m.openInput(modeDate, "Date (YYYY-MM-DD, empty clears): ", m.snapshot.Record(c.Code).Date)
			return m, cmd
		}

	case key.Matches(msg, m.keys.AddPhotos):
		if m.ingesting != "" {
			m.setNotice(noticeWarn, fmt.Sprintf("Still adding photos to %s", m.ingesting))
			return m, nil
		}
		if _, ok := m.selected(); ok {
			cmd := m.openInput(modePhotos, "Photo paths (comma separated): ", "")
			return m, cmd
		}

	case key.Matches(msg, m.keys.NextPhoto):
		m.movePhoto(1)
	case key.Matches(msg, m.keys.PrevPhoto):
		m.movePhoto(-1)

	case key.Matches(msg, m.keys.RemovePhoto):
		if c, ok := m.selected(); ok && len(m.snapshot.Record(c.Code).Photos) > 0 {
			idx := m.photoIdx
			m.apply(func(ctx context.Context) (visits.Snapshot, error) {
				return m.tracker.RemovePhoto(ctx, c.Code, idx)
			})
			m.movePhoto(0)
		}

	case key.Matches(msg, m.keys.RetrySave):
		m.flush()

	case key.Matches(msg, m.keys.RefreshFacts):
		if m.refreshFacts == nil {
			return m, nil
		}
		m.meta = nil
		m.metaNote = "Refetching country facts..."
		m.refreshDetail()
		refresh := m.refreshFacts
		return m, func() tea.Msg {
			refresh()
			return nil
		}

	case key.Matches(msg, m.keys.HalfPageDown):
		m.detail.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.detail.HalfPageUp()
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	n := len(m.visible())
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.photoIdx = 0
	m.refreshDetail()
}

func (m *Model) resetCursor() {
	m.cursor = 0
	m.photoIdx = 0
	m.refreshDetail()
}

func (m *Model) movePhoto(delta int) {
	c, ok := m.selected()
	if !ok {
		return
	}
	n := len(m.snapshot.Record(c.Code).Photos)
	if n == 0 {
		m.photoIdx = 0
	} else {
		m.photoIdx = min(max(m.photoIdx+delta, 0), n-1)
	}
	m.refreshDetail()
}

// apply runs one tracker mutation. The returned snapshot is shown even when
// the save failed, since memory is never rolled back.
func (m *Model) apply(op func(context.Context) (visits.Snapshot, error)) {
	if m.tracker == nil {
		return
	}
	snap, err := op(m.ctx)
	m.snapshot = snap
	if err != nil {
		m.logger.Warn("save failed", "error", err)
	}
	m.syncStorage()
	m.refreshDetail()
}

func (m *Model) flush() {
	if m.tracker == nil || !m.tracker.Status().Dirty() {
		return
	}
	if err := m.tracker.Flush(m.ctx); err != nil {
		m.logger.Warn("flush failed", "error", err)
	}
	m.syncStorage()
}

// ingestDoneMsg carries the outcome of a background photo batch.
type ingestDoneMsg struct {
	code   visits.Code
	result imagecomp.BatchResult
	err    error
}

// ingestCmd compresses and stores photos off the UI goroutine.
func ingestCmd(ctx context.Context, tracker *visits.Tracker, code visits.Code, paths []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, IngestTimeout)
		defer cancel()
		srcs := make([]imagecomp.Source, len(paths))
		for i, p := range paths {
			srcs[i] = imagecomp.FileSource(p)
		}
		result, err := tracker.IngestPhotos(ctx, code, srcs)
		if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = ctx.Err()
		}
		return ingestDoneMsg{code: code, result: result, err: err}
	}
}

func (m Model) handleIngestDone(msg ingestDoneMsg) Model {
	m.ingesting = ""
	if m.tracker != nil {
		m.snapshot = m.tracker.Snapshot()
	}
	m.setNotice(noticeInfo, "")
	if len(msg.result.Images) > 0 {
		m.setNotice(noticeInfo, fmt.Sprintf("Added %d photo(s) to %s", len(msg.result.Images), msg.code))
	}
	note := msg.result.Notice()
	if errors.Is(msg.err, context.DeadlineExceeded) {
		note = strings.TrimSuffix("Adding photos timed out; "+note, "; ")
	}
	if note != "" {
		m.setNotice(noticeWarn, note)
	}
	m.syncStorage()
	m.refreshDetail()
	return m
}

// splitPaths parses the comma separated photo path list.
func splitPaths(raw string) []string {
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// validDate accepts an empty string (clears) or a calendar date.
func validDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
