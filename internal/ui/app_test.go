package ui

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/passport/internal/imagecomp"
	"github.com/five82/passport/internal/kvstore"
	"github.com/five82/passport/internal/persist"
	"github.com/five82/passport/internal/prefs"
	"github.com/five82/passport/internal/registry"
	"github.com/five82/passport/internal/restcountries"
	"github.com/five82/passport/internal/visits"
)

var testCountries = []registry.Country{
	{Name: "France", Code: "FR", Region: "Europe"},
	{Name: "Japan", Code: "JP", Region: "Asia"},
	{Name: "Kenya", Code: "KE", Region: "Africa"},
}

func newTestModel(t *testing.T, quota int64) (Model, *visits.Tracker) {
	t.Helper()
	backend := kvstore.NewMemory(quota)
	tracker := visits.NewTracker(visits.Snapshot{}, persist.NewGateway(backend), nil)
	m := New(Options{
		Tracker:   tracker,
		Storage:   backend,
		Countries: testCountries,
		Prefs:     prefs.Defaults(),
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), tracker
}

// press feeds keys to the model. Named keys use their bubbletea names; any
// other string is typed as runes.
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func TestModel_ToggleVisitedSaves(t *testing.T) {
	m, tracker := newTestModel(t, 0)

	m, _ = press(t, m, "space")
	if !tracker.Snapshot().Record("FR").Visited {
		t.Fatalf("FR not visited after toggle")
	}
	m, _ = press(t, m, "j", "space")
	if !tracker.Snapshot().Record("JP").Visited {
		t.Fatalf("JP not visited after moving down and toggling")
	}
	if tracker.Status().Dirty() {
		t.Fatalf("tracker dirty after successful saves")
	}
	if !strings.Contains(m.View(), "2/3 visited") {
		t.Fatalf("header does not show 2/3 visited")
	}
}

func TestModel_SetDate(t *testing.T) {
	m, tracker := newTestModel(t, 0)

	m, _ = press(t, m, "d", "2024-05-01", "enter")
	if got := tracker.Snapshot().Record("FR").Date; got != "2024-05-01" {
		t.Fatalf("Date = %q, want 2024-05-01", got)
	}

	// The input opens prefilled; erasing it clears the date.
	m, _ = press(t, m, "d")
	if m.input.Value() != "2024-05-01" {
		t.Fatalf("input = %q, want prefilled date", m.input.Value())
	}
	for range len("2024-05-01") {
		m, _ = press(t, m, "backspace")
	}
	_, _ = press(t, m, "enter")
	if got := tracker.Snapshot().Record("FR").Date; got != "" {
		t.Fatalf("Date = %q, want cleared", got)
	}
}

func TestModel_InvalidDateIsRejected(t *testing.T) {
	m, tracker := newTestModel(t, 0)

	m, _ = press(t, m, "d", "May 1st", "enter")
	if got := tracker.Snapshot().Record("FR").Date; got != "" {
		t.Fatalf("Date = %q, want empty", got)
	}
	if m.noticeLevel != noticeWarn || !strings.Contains(m.notice, "not a date") {
		t.Fatalf("notice = %q (level %d)", m.notice, m.noticeLevel)
	}
	if m.mode != modeBrowse {
		t.Fatalf("input still open after submit")
	}
}

func TestModel_StorageFullKeepsChangeAndShowsNotice(t *testing.T) {
	m, tracker := newTestModel(t, 8)

	m, _ = press(t, m, "space")
	if !m.snapshot.Record("FR").Visited || !tracker.Snapshot().Record("FR").Visited {
		t.Fatalf("toggle lost after failed save")
	}
	if m.noticeLevel != noticeError || !strings.Contains(m.notice, "Storage is full") {
		t.Fatalf("notice = %q, want storage full", m.notice)
	}
	if header := m.renderHeader(); !strings.Contains(header, "0 B of 8 B stored") {
		t.Fatalf("header missing storage meter: %q", header)
	}
}

func TestModel_StorageMeterTracksSaves(t *testing.T) {
	m, _ := newTestModel(t, 0)
	if !strings.Contains(m.renderHeader(), "0 B stored") {
		t.Fatalf("header missing empty meter: %q", m.renderHeader())
	}
	m, _ = press(t, m, "space")
	if m.usedBytes == 0 {
		t.Fatalf("meter not updated after save")
	}
}

func TestModel_RefreshFactsKey(t *testing.T) {
	var refreshed int
	m, _ := newTestModel(t, 0)
	m.refreshFacts = func() { refreshed++ }
	next, _ := m.Update(MetaMsg{Meta: map[visits.Code]restcountries.Meta{"FR": {Capital: "Paris"}}})
	m = next.(Model)

	m, cmd := press(t, m, "R")
	if cmd == nil {
		t.Fatalf("refresh returned no command")
	}
	if m.meta != nil || !strings.Contains(m.detailContent(), "Refetching country facts") {
		t.Fatalf("old facts still shown after refresh")
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("refresh command returned %T, want nil", msg)
	}
	if refreshed != 1 {
		t.Fatalf("refreshed = %d, want 1", refreshed)
	}
}

func TestModel_AddPhotosReportsDroppedFiles(t *testing.T) {
	m, tracker := newTestModel(t, 0)
	dir := t.TempDir()
	good := filepath.Join(dir, "beach.png")
	writePNG(t, good, 64, 48)
	bad := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, cmd := press(t, m, "p", good+", "+bad, "enter")
	if cmd == nil {
		t.Fatalf("no ingest command returned")
	}
	if m.ingesting != "FR" {
		t.Fatalf("ingesting = %q, want FR", m.ingesting)
	}
	next, _ := m.Update(cmd())
	m = next.(Model)

	photos := tracker.Snapshot().Record("FR").Photos
	if len(photos) != 1 || !photos[0].Valid() {
		t.Fatalf("photos = %d, want 1 valid", len(photos))
	}
	if m.notice != "1 photo could not be added (bad.jpg)" {
		t.Fatalf("notice = %q", m.notice)
	}
	if m.ingesting != "" {
		t.Fatalf("ingesting not cleared")
	}

	if detail := m.detailContent(); !strings.Contains(detail, "64×48") {
		t.Fatalf("detail missing photo dimensions:\n%s", detail)
	}

	m, _ = press(t, m, "x")
	if n := len(tracker.Snapshot().Record("FR").Photos); n != 0 {
		t.Fatalf("photos after remove = %d, want 0", n)
	}
}

func TestModel_IngestTimeoutKeepsDroppedFiles(t *testing.T) {
	m, _ := newTestModel(t, 0)
	m.ingesting = "FR"

	next, _ := m.Update(ingestDoneMsg{
		code: "FR",
		result: imagecomp.BatchResult{
			Failed: []imagecomp.Failure{{Name: "bad.jpg", Err: context.DeadlineExceeded}},
		},
		err: context.DeadlineExceeded,
	})
	m = next.(Model)

	if m.noticeLevel != noticeWarn {
		t.Fatalf("notice level = %d, want warn", m.noticeLevel)
	}
	for _, want := range []string{"timed out", "bad.jpg"} {
		if !strings.Contains(m.notice, want) {
			t.Fatalf("notice = %q, missing %q", m.notice, want)
		}
	}
}

func TestModel_RegionTabsAndSearch(t *testing.T) {
	m, _ := newTestModel(t, 0)
	if len(m.regions) != 4 || m.regions[0] != "All" {
		t.Fatalf("regions = %v", m.regions)
	}

	// All, Africa, Asia, Europe
	m, _ = press(t, m, "tab", "tab")
	rows := m.visible()
	if len(rows) != 1 || rows[0].Code != "JP" {
		t.Fatalf("Asia tab rows = %v", rows)
	}
	if got := prefs.Load(m.prefsPath).Region; got != "Asia" {
		t.Fatalf("saved region = %q, want Asia", got)
	}

	m, _ = press(t, m, "h", "h", "/", "ken")
	if rows := m.visible(); len(rows) != 1 || rows[0].Code != "KE" {
		t.Fatalf("search rows = %v", rows)
	}
	m, _ = press(t, m, "esc")
	if m.query != "" || len(m.visible()) != 3 {
		t.Fatalf("esc did not clear search: query=%q rows=%d", m.query, len(m.visible()))
	}
}

func TestModel_VisitedOnlyFilter(t *testing.T) {
	m, _ := newTestModel(t, 0)
	m, _ = press(t, m, "j", "space", "v")
	rows := m.visible()
	if len(rows) != 1 || rows[0].Code != "JP" {
		t.Fatalf("visited-only rows = %v", rows)
	}
}

func TestModel_CycleThemePersists(t *testing.T) {
	m, _ := newTestModel(t, 0)
	m, _ = press(t, m, "T")
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	if got := prefs.Load(m.prefsPath).Theme; got != "Kanagawa" {
		t.Fatalf("saved theme = %q, want Kanagawa", got)
	}
}

func TestModel_MetaMessages(t *testing.T) {
	m, _ := newTestModel(t, 0)
	if !strings.Contains(m.detailContent(), "Loading country facts") {
		t.Fatalf("detail missing loading note")
	}

	next, _ := m.Update(MetaMsg{Meta: map[visits.Code]restcountries.Meta{
		"FR": {Capital: "Paris", Population: 67_750_000, Area: 551695},
	}})
	m = next.(Model)
	detail := m.detailContent()
	for _, want := range []string{"Paris", "67,750,000", "551,695"} {
		if !strings.Contains(detail, want) {
			t.Fatalf("detail missing %q:\n%s", want, detail)
		}
	}
}

func TestModel_QuitFlushes(t *testing.T) {
	m, _ := newTestModel(t, 0)
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatalf("quit returned nil cmd")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("quit cmd did not produce QuitMsg")
	}
}

func TestSplitPathsAndValidDate(t *testing.T) {
	got := splitPaths(` a.jpg, "b c.png" ,, 'd.webp'`)
	if strings.Join(got, "|") != "a.jpg|b c.png|d.webp" {
		t.Fatalf("splitPaths = %q", got)
	}
	for in, want := range map[string]bool{"": true, "2024-02-29": true, "2023-02-29": false, "01/05/2024": false} {
		if validDate(in) != want {
			t.Fatalf("validDate(%q) = %v, want %v", in, !want, want)
		}
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Encode: %v", err)
	}
}
