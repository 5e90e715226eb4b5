// Package app is the composition root of the tracker.
//
// Run wires the pieces together in this order:
//
//  1. config.Load: TOML file plus PASSPORT_* environment overrides
//  2. A JSON slog logger writing to the configured log file, installed as
//     the process default
//  3. prefs.Load and registry.Load
//  4. kvstore.OpenSQLite with the configured quota, wrapped by
//     persist.Gateway; the stored snapshot seeds visits.Tracker
//  5. fetch + restcountries + countrymeta for country facts
//  6. ui.NewProgram, then StartMetaLoader feeding facts into it
//
// # Meta Loader
//
// Facts are fetched once and cached in storage by countrymeta. When the
// fetch fails the loader retries with exponential backoff (2s base, doubled
// per failure, capped at 30s) and tells the UI when the next attempt is due.
// The loader stops as soon as facts arrive or the context is cancelled.
// Pressing R in the UI clears the cached facts and restarts the loader.
//
// # Shutdown
//
// After the UI exits, a tracker with unsaved changes gets one more Flush
// before storage is closed.
package app
