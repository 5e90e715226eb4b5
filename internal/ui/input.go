package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/passport/internal/visits"
)

// openInput focuses the bottom text input for mode.
func (m *Model) openInput(mode inputMode, prompt, value string) tea.Cmd {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return tea.Batch(m.input.Focus(), textinput.Blink)
}

func (m *Model) closeInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.SetValue("")
}

// handleInputKey routes keys while a text input is open.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.flush()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.mode == modeSearch {
			m.query = ""
			m.resetCursor()
		}
		m.closeInput()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		// Live filtering while typing.
		m.query = m.input.Value()
		m.resetCursor()
	}
	return m, cmd
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	mode := m.mode
	c, ok := m.selected()
	m.closeInput()

	switch mode {
	case modeSearch:
		m.query = value
		m.resetCursor()

	case modeDate:
		if !ok {
			return m, nil
		}
		if !validDate(value) {
			m.setNotice(noticeWarn, fmt.Sprintf("%q is not a date like 2024-05-01", value))
			return m, nil
		}
		m.apply(func(ctx context.Context) (visits.Snapshot, error) {
			return m.tracker.SetDate(ctx, c.Code, value)
		})

	case modePhotos:
		paths := splitPaths(value)
		if !ok || len(paths) == 0 || m.tracker == nil {
			return m, nil
		}
		m.ingesting = c.Code
		m.setNotice(noticeInfo, fmt.Sprintf("Compressing %d photo(s) for %s...", len(paths), c.Name))
		return m, ingestCmd(m.ctx, m.tracker, c.Code, paths)
	}
	return m, nil
}
