package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockFiresInOrder(t *testing.T) {
	clock := NewFakeClock(epoch)
	var fired []string
	var at []time.Time

	clock.AfterFunc(2*time.Second, func() { fired = append(fired, "b"); at = append(at, clock.Now()) })
	clock.AfterFunc(time.Second, func() { fired = append(fired, "a"); at = append(at, clock.Now()) })
	clock.AfterFunc(5*time.Second, func() { fired = append(fired, "c") })

	clock.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, []time.Time{epoch.Add(time.Second), epoch.Add(2 * time.Second)}, at)
	assert.Equal(t, epoch.Add(3*time.Second), clock.Now())
	assert.Equal(t, 1, clock.Pending())
}

func TestFakeClockStop(t *testing.T) {
	clock := NewFakeClock(epoch)
	called := false
	timer := clock.AfterFunc(time.Second, func() { called = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	clock.Advance(time.Minute)
	assert.False(t, called)
}

func TestFakeClockCallbackSchedulesMore(t *testing.T) {
	clock := NewFakeClock(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		clock.AfterFunc(time.Second, tick)
	}
	clock.AfterFunc(time.Second, tick)

	clock.Advance(5 * time.Second)
	assert.Equal(t, 5, count)
}

func TestTimerSetReplacesPendingKey(t *testing.T) {
	clock := NewFakeClock(epoch)
	set := NewTimerSet(clock)
	var fired []string

	set.Schedule("k", 3*time.Second, func() { fired = append(fired, "first") })
	clock.Advance(time.Second)
	set.Schedule("k", 3*time.Second, func() { fired = append(fired, "second") })

	clock.Advance(2 * time.Second)
	assert.Empty(t, fired)
	assert.True(t, set.Pending("k"))

	clock.Advance(time.Second)
	assert.Equal(t, []string{"second"}, fired)
	assert.False(t, set.Pending("k"))
}

func TestTimerSetCancel(t *testing.T) {
	clock := NewFakeClock(epoch)
	set := NewTimerSet(clock)
	called := false

	set.Schedule("k", time.Second, func() { called = true })
	assert.True(t, set.Cancel("k"))
	assert.False(t, set.Cancel("k"))

	clock.Advance(time.Minute)
	assert.False(t, called)
}

func TestTimerSetStop(t *testing.T) {
	clock := NewFakeClock(epoch)
	set := NewTimerSet(clock)
	n := 0
	set.Schedule("a", time.Second, func() { n++ })
	set.Schedule("b", time.Second, func() { n++ })

	set.Stop()
	clock.Advance(time.Minute)
	assert.Zero(t, n)
	assert.Zero(t, clock.Pending())
}
