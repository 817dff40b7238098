package protection

import (
	"sync"
	"time"

	"guild-guardian/model"
	"guild-guardian/utils"
)

// SpamCooldown is how long a (guild, user) key is ignored after a spam verdict.
const SpamCooldown = 10 * time.Second

type spamBucket struct {
	messages []model.MessageRef
}

// SpamDetector counts messages per (guild, user) in a fixed window that starts
// with the first message of a bucket. It does not slide per message.
type SpamDetector struct {
	timers *utils.TimerSet

	mu       sync.Mutex
	buckets  map[string]*spamBucket
	cooldown map[string]struct{}
}

func NewSpamDetector(clock utils.Clock) *SpamDetector {
	return &SpamDetector{
		timers:   utils.NewTimerSet(clock),
		buckets:  make(map[string]*spamBucket),
		cooldown: make(map[string]struct{}),
	}
}

func spamKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// OnMessage advances the key's state machine and returns a verdict when the
// bucket reaches the threshold. All transitions happen under the lock and
// nothing here blocks, so callers act on the verdict after state is settled.
func (d *SpamDetector) OnMessage(msg model.MessageEvent, policy *model.GuildPolicy) *model.Verdict {
	if policy == nil || !policy.AntiSpamEnabled {
		return nil
	}
	key := spamKey(msg.GuildID, msg.AuthorID)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, cooling := d.cooldown[key]; cooling {
		return nil
	}

	bucket, ok := d.buckets[key]
	if !ok {
		bucket = &spamBucket{}
		d.buckets[key] = bucket
		d.timers.Schedule("window:"+key, policy.SpamWindow(), func() { d.expire(key, bucket) })
	}
	bucket.messages = append(bucket.messages, msg.Ref())

	if len(bucket.messages) < policy.SpamMessageThreshold {
		return nil
	}

	d.timers.Cancel("window:" + key)
	delete(d.buckets, key)
	d.cooldown[key] = struct{}{}
	d.timers.Schedule("cooldown:"+key, SpamCooldown, func() { d.endCooldown(key) })

	return &model.Verdict{
		Kind:     model.VerdictSpam,
		GuildID:  msg.GuildID,
		UserID:   msg.AuthorID,
		Messages: bucket.messages,
		Count:    len(bucket.messages),
		Reason:   "AutoMod: Message spam detected",
	}
}

func (d *SpamDetector) expire(key string, bucket *spamBucket) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.buckets[key] == bucket {
		delete(d.buckets, key)
	}
}

func (d *SpamDetector) endCooldown(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cooldown, key)
}

// BucketSize returns the number of messages buffered for the key.
func (d *SpamDetector) BucketSize(guildID, userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buckets[spamKey(guildID, userID)]; ok {
		return len(b.messages)
	}
	return 0
}

func (d *SpamDetector) CoolingDown(guildID, userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.cooldown[spamKey(guildID, userID)]
	return ok
}

// Stop cancels all pending window and cooldown timers.
func (d *SpamDetector) Stop() {
	d.timers.Stop()
}
