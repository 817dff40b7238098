package model

import "strings"

// RaidAction is the configured response to a join flood.
type RaidAction string

const (
	RaidActionAlert        RaidAction = "alert"
	RaidActionKick         RaidAction = "kick"
	RaidActionBan          RaidAction = "ban"
	RaidActionVerification RaidAction = "verification"
)

// ParseRaidAction maps a stored value to a RaidAction. Unknown or empty values are alert only.
func ParseRaidAction(s string) RaidAction {
	switch a := RaidAction(strings.ToLower(strings.TrimSpace(s))); a {
	case RaidActionAlert, RaidActionKick, RaidActionBan, RaidActionVerification:
		return a
	}
	return RaidActionAlert
}

// ContentAction is the configured response for spam and the content classifiers.
type ContentAction string

const (
	ContentActionAlert  ContentAction = "alert"
	ContentActionDelete ContentAction = "delete"
	ContentActionWarn   ContentAction = "warn"
	ContentActionMute   ContentAction = "mute"
	ContentActionKick   ContentAction = "kick"
	ContentActionBan    ContentAction = "ban"
)

func ParseContentAction(s string) ContentAction {
	switch a := ContentAction(strings.ToLower(strings.TrimSpace(s))); a {
	case ContentActionAlert, ContentActionDelete, ContentActionWarn, ContentActionMute, ContentActionKick, ContentActionBan:
		return a
	}
	return ContentActionAlert
}

// AltAction is the configured response to a newly created account joining.
type AltAction string

const (
	AltActionAlert AltAction = "alert"
	AltActionKick  AltAction = "kick"
	AltActionBan   AltAction = "ban"
)

func ParseAltAction(s string) AltAction {
	switch a := AltAction(strings.ToLower(strings.TrimSpace(s))); a {
	case AltActionAlert, AltActionKick, AltActionBan:
		return a
	}
	return AltActionAlert
}
