package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the list and detail
	// panes split the width evenly.
	LayoutCompactWidth = 100

	// LayoutRegionWidth is the minimum width to show the region column.
	LayoutRegionWidth = 120
)

// IngestTimeout bounds one photo batch, compression and save included.
const IngestTimeout = 2 * time.Minute

// dateLayout is the accepted visit date format.
const dateLayout = "2006-01-02"
