package model

import "time"

// Severity colors used for alerts.
const (
	ColorRed    = 0xe74c3c
	ColorOrange = 0xf39c12
	ColorYellow = 0xf1c40f
	ColorGreen  = 0x2ecc71
	ColorBlue   = 0x3498db
)

type AlertField struct {
	Name   string
	Value  string
	Inline bool
}

// Alert is an embed posted to one of a guild's log channels.
type Alert struct {
	Title         string
	Description   string
	Color         int
	AuthorName    string
	AuthorIconURL string
	ThumbnailURL  string
	Fields        []AlertField
	Timestamp     time.Time
}
