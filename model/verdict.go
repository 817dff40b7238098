package model

// VerdictKind names the detector or classifier that produced a verdict.
type VerdictKind string

const (
	VerdictRaid    VerdictKind = "raid"
	VerdictSpam    VerdictKind = "spam"
	VerdictMention VerdictKind = "mention"
	VerdictLink    VerdictKind = "link"
	VerdictInvite  VerdictKind = "invite"
	VerdictCaps    VerdictKind = "caps"
	VerdictAlt     VerdictKind = "alt"
)

// Verdict is the output of a detector: the abuse condition plus enough
// context for the dispatcher to act on it.
type Verdict struct {
	Kind    VerdictKind
	GuildID string
	UserID  string
	// Messages to delete when the action is delete. For spam this is the whole bucket.
	Messages []MessageRef
	// Members that joined inside the raid window, the trigger included.
	Members []string
	// Count is the joins in the window, messages in the bucket, mentions, or caps percentage.
	Count     int
	EpisodeID int64
	Reason    string
}
