package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// renderHeader shows visit totals and the save state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	total := len(m.countries)
	visited := 0
	for _, c := range m.countries {
		if m.snapshot.Record(c.Code).Visited {
			visited++
		}
	}

	parts := []string{
		styles.Logo.Render("passport"),
		styles.Text.Render(fmt.Sprintf("%d/%d visited", visited, total)),
	}
	if total > 0 {
		parts = append(parts, styles.MutedText.Render(fmt.Sprintf("%.0f%%", 100*float64(visited)/float64(total))))
	}
	parts = append(parts, styles.MutedText.Render(fmt.Sprintf("%d photos", m.snapshot.PhotoCount())))

	if m.tracker != nil {
		status := m.tracker.Status()
		switch {
		case status.CapacityExceeded():
			parts = append(parts, styles.DangerText.Render("storage full"))
		case status.LastSaveError != nil:
			parts = append(parts, styles.DangerText.Render("unsaved"))
		case !status.LastSavedAt.IsZero():
			parts = append(parts, styles.FaintText.Render("saved "+humanize.Time(status.LastSavedAt)))
		}
	}
	if m.usageKnown {
		meter := humanize.IBytes(uint64(m.usedBytes))
		if m.quotaBytes > 0 {
			meter += " of " + humanize.IBytes(uint64(m.quotaBytes))
		}
		parts = append(parts, styles.MutedText.Render(meter+" stored"))
	}
	if m.query != "" {
		parts = append(parts, styles.InfoText.Render("/"+truncate(m.query, 20)))
	}
	if m.visitedOnly {
		parts = append(parts, styles.WarningText.Render("visited only"))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

// renderFooter shows the notice line above the input or key hints.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()

	notice := ""
	if m.notice != "" {
		style := styles.InfoText
		switch m.noticeLevel {
		case noticeWarn:
			style = styles.WarningText
		case noticeError:
			style = styles.DangerText
		}
		notice = style.Render(truncate(m.notice, max(m.width-2, 10)))
	}

	var bottom string
	if m.mode != modeBrowse {
		bottom = m.input.View()
	} else {
		hints := make([]string, 0, 6)
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			hints = append(hints, styles.AccentText.Render(h.Key)+" "+styles.MutedText.Render(h.Desc))
		}
		bottom = strings.Join(hints, "  ")
	}
	return styles.Footer.Width(m.width).Render(notice + "\n" + bottom)
}
