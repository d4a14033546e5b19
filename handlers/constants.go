package handlers

const (
	// Embed Colors
	ColorRed = 0xf04747
)
