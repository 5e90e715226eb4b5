// Package ui is the Bubble Tea interface of the tracker.
//
// The screen has three parts:
//
//   - Header: visited totals, photo count and save state
//   - Body: region tabs with the country list on the left, the selected
//     country's visit record, facts and photos on the right
//   - Footer: one notice line (storage full, dropped photos, bad dates)
//     above either the key hints or the active text input
//
// All visit changes go through visits.Tracker. Cheap mutations run inline in
// Update; photo batches run as a tea.Cmd because decoding and re-encoding
// large images takes noticeable time. Country facts arrive asynchronously as
// MetaMsg or MetaErrorMsg sent by the app package.
//
// Theme, region tab and the visited-only filter are persisted through the
// prefs package whenever they change.
package ui
