package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutUserAgentWidth is the minimum width to show user agents in the log.
	LayoutUserAgentWidth = 150
)

// Fixed row heights of the connected layout.
const (
	headerHeight   = 1
	commandHeight  = 1
	statCardHeight = 4
	tabBarHeight   = 1
	minBoxHeight   = 5
)

// Timing constants.
const (
	// DefaultClockTick refreshes relative timestamps in the header.
	DefaultClockTick = time.Second
)

// Placeholders shown for empty collections.
const (
	emptyLogsText   = "No requests logged yet"
	emptyRoutesText = "No routes registered yet"
	emptyFilesText  = "No file requests logged yet"
	emptyConfigText = "Configuration not loaded yet"
)
