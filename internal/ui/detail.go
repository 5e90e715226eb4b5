package ui

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/passport/internal/imagecomp"
)

// layoutDetail sizes the detail viewport to the current window.
func (m *Model) layoutDetail() {
	header, footer := 1, 2
	m.detail.Width = max(m.width-m.listWidth()-2, 8)
	m.detail.Height = max(m.height-header-footer-2, 1)
	m.refreshDetail()
}

// refreshDetail regenerates the detail pane content.
func (m *Model) refreshDetail() {
	m.detail.SetContent(m.detailContent())
}

func (m Model) renderDetail(width, height int) string {
	vp := m.detail
	vp.Width = max(width-2, 1)
	vp.Height = max(height-2, 1)
	vp.SetContent(m.detailContent())
	return m.theme.Styles().Pane.Width(width - 2).Height(height - 2).Render(vp.View())
}

// detailContent describes the selected country: visit record, photos and
// cached facts.
func (m Model) detailContent() string {
	styles := m.theme.Styles()
	c, ok := m.selected()
	if !ok {
		return styles.MutedText.Render("No countries match.")
	}
	rec := m.snapshot.Record(c.Code)

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(c.Name))
	b.WriteString(" ")
	b.WriteString(styles.FaintText.Render(string(c.Code)))
	b.WriteString("\n")
	b.WriteString(styles.RegionStyle(c.Region).Render(c.Region))
	b.WriteString("\n\n")

	row := func(label, value string, style lipgloss.Style) {
		b.WriteString(styles.MutedText.Width(12).Render(label))
		b.WriteString(style.Render(value))
		b.WriteString("\n")
	}

	if rec.Visited {
		row("Visited", "yes", styles.SuccessText)
	} else {
		row("Visited", "no", styles.MutedText)
	}
	if rec.Date != "" {
		row("Date", rec.Date, styles.Text)
	} else {
		row("Date", "not set", styles.FaintText)
	}

	b.WriteString("\n")
	b.WriteString(styles.Text.Bold(true).Render("Facts"))
	b.WriteString("\n")
	if meta, ok := m.meta[c.Code]; ok {
		capital := meta.Capital
		if capital == "" {
			capital = "unknown"
		}
		row("Capital", capital, styles.Text)
		if meta.Population > 0 {
			row("Population", humanize.Comma(meta.Population), styles.Text)
		}
		if meta.Area > 0 {
			row("Area", humanize.CommafWithDigits(meta.Area, 0)+" km²", styles.Text)
		}
	} else if m.metaNote != "" {
		b.WriteString(styles.FaintText.Render(m.metaNote))
		b.WriteString("\n")
	} else {
		b.WriteString(styles.FaintText.Render("No facts for this country."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.Text.Bold(true).Render(fmt.Sprintf("Photos (%d)", len(rec.Photos))))
	if total := photoBytes(rec.Photos); total > 0 {
		b.WriteString(" ")
		b.WriteString(styles.FaintText.Render(humanize.IBytes(uint64(total))))
	}
	b.WriteString("\n")
	if m.ingesting == c.Code {
		b.WriteString(styles.InfoText.Render("compressing..."))
		b.WriteString("\n")
	}
	for i, p := range rec.Photos {
		line := fmt.Sprintf("%2d  %s  %s", i+1, p.MediaType(), humanize.IBytes(uint64(p.Size())))
		if i == m.photoIdx {
			if dims := photoDimensions(p); dims != "" {
				line += "  " + dims
			}
			b.WriteString(styles.Selected.Render("> " + line))
		} else {
			b.WriteString(styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if len(rec.Photos) == 0 && m.ingesting != c.Code {
		b.WriteString(styles.FaintText.Render("Press p to add photos."))
		b.WriteString("\n")
	}
	return b.String()
}

func photoBytes(photos []imagecomp.EncodedImage) int {
	total := 0
	for _, p := range photos {
		total += p.Size()
	}
	return total
}

// photoDimensions reads the pixel size from the photo header, or "" when
// the payload cannot be read.
func photoDimensions(p imagecomp.EncodedImage) string {
	data, err := p.Decode()
	if err != nil {
		return ""
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d×%d", cfg.Width, cfg.Height)
}
