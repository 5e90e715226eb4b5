package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderList draws the region tabs and the scrolling country table.
func (m Model) renderList(width, height int) string {
	styles := m.theme.Styles()
	inner := max(width-2, 4)
	rowsHeight := max(height-4, 1) // border, tabs, blank line

	var b strings.Builder
	b.WriteString(m.renderTabs(inner))
	b.WriteString("\n\n")

	rows := m.visible()
	if len(rows) == 0 {
		b.WriteString(styles.MutedText.Render("No countries match."))
	}

	cursor := min(m.cursor, max(len(rows)-1, 0))
	start := 0
	if cursor >= rowsHeight {
		start = cursor - rowsHeight + 1
	}
	end := min(start+rowsHeight, len(rows))
	showRegion := m.width >= LayoutRegionWidth

	for i := start; i < end; i++ {
		c := rows[i]
		rec := m.snapshot.Record(c.Code)

		mark := styles.FaintText.Render("○")
		if rec.Visited {
			mark = styles.SuccessText.Render("●")
		}
		extra := ""
		if n := len(rec.Photos); n > 0 {
			extra = fmt.Sprintf(" [%d]", n)
		}

		nameWidth := inner - 7 - len([]rune(extra))
		if showRegion {
			nameWidth -= 10
		}
		line := fmt.Sprintf("%s %s  %s%s", mark, c.Code, padRight(truncate(c.Name, nameWidth), nameWidth), extra)
		if showRegion {
			line += " " + styles.RegionStyle(c.Region).Render(truncate(c.Region, 9))
		}
		if i == cursor {
			line = styles.Selected.Width(inner).Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	pane := styles.FocusPane
	if m.mode != modeBrowse {
		pane = styles.Pane
	}
	return pane.Width(inner).Height(height - 2).Render(b.String())
}

func (m Model) renderTabs(width int) string {
	styles := m.theme.Styles()
	tabs := make([]string, len(m.regions))
	for i, r := range m.regions {
		if i == m.regionIdx {
			tabs[i] = styles.ActiveTab.Render(r)
		} else {
			tabs[i] = styles.Tab.Render(r)
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if lipgloss.Width(row) > width {
		// Too narrow for every tab: show only the active one.
		label := m.regions[m.regionIdx]
		row = styles.ActiveTab.Render(fmt.Sprintf("%s %d/%d", label, m.regionIdx+1, len(m.regions)))
	}
	return row
}
