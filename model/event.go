package model

import "time"

// JoinEvent is a member-join as seen by the protection engine.
type JoinEvent struct {
	GuildID          string
	UserID           string
	UserTag          string
	AvatarURL        string
	Bot              bool
	JoinedAt         time.Time
	AccountCreatedAt time.Time
	// MemberCount is the guild's size after the join, 0 when unknown.
	MemberCount int
}

// MessageEvent is a message-create as seen by the protection engine.
type MessageEvent struct {
	GuildID         string
	ChannelID       string
	MessageID       string
	AuthorID        string
	AuthorTag       string
	AuthorAvatarURL string
	Bot             bool
	WebhookID       string
	Content         string
	MentionUserIDs  []string
	MentionRoleIDs  []string
	Attachments     []Attachment
}

type Attachment struct {
	Name string
	URL  string
}

// Ref returns the reference used for deletion.
func (m MessageEvent) Ref() MessageRef {
	return MessageRef{ChannelID: m.ChannelID, MessageID: m.MessageID}
}

// MessageRef identifies a message that may have to be deleted.
type MessageRef struct {
	ChannelID string
	MessageID string
}
