package tui

// Package-level constants to avoid magic numbers and improve readability.
const (
	// Color constants.
	cyanColor   = "63"
	grayColor   = "241"
	redColor    = "196"
	greenColor  = "46"
	borderColor = "69"

	// rowOverheadLines is header+input+message+selected+footer around the rows.
	rowOverheadLines = 8
)
