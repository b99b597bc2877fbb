package feedback

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingChannel stores delivered events.
type recordingChannel struct {
	name string
	err  error

	mu     sync.Mutex
	events []Event
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(ctx context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.err
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newTestDispatcher(cooldown time.Duration) (*Dispatcher, *recordingChannel, *recordingChannel, *recordingChannel, *recordingChannel) {
	audio := &recordingChannel{name: "audio"}
	haptic := &recordingChannel{name: "haptic"}
	visual := &recordingChannel{name: "visual"}
	push := &recordingChannel{name: "push"}
	return NewDispatcher(audio, haptic, visual, push, cooldown), audio, haptic, visual, push
}

func TestDispatchSuccessFansOutToAllChannels(t *testing.T) {
	d, audio, haptic, visual, push := newTestDispatcher(time.Millisecond)

	ok := d.Dispatch(context.Background(), Event{Kind: KindSuccess, Message: "first check-in recorded"})
	require.True(t, ok)

	require.Eventually(t, func() bool {
		return audio.count() == 1 && haptic.count() == 1 && visual.count() == 1 && push.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDispatchErrorSkipsAudio(t *testing.T) {
	d, audio, haptic, visual, push := newTestDispatcher(time.Millisecond)

	require.True(t, d.Dispatch(context.Background(), Event{Kind: KindError, Message: "unknown code"}))

	require.Eventually(t, func() bool {
		return haptic.count() == 1 && visual.count() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, audio.count())
	assert.Zero(t, push.count())
}

func TestDispatchWarningHapticOnly(t *testing.T) {
	d, audio, haptic, visual, push := newTestDispatcher(time.Millisecond)

	require.True(t, d.Dispatch(context.Background(), Event{Kind: KindWarning, Message: "wait 2m59s"}))

	require.Eventually(t, func() bool { return haptic.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, audio.count())
	assert.Zero(t, visual.count())
	assert.Zero(t, push.count())
}

func TestDispatchThrottleSharedAcrossKinds(t *testing.T) {
	d, audio, haptic, _, _ := newTestDispatcher(2 * time.Second)

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	require.True(t, d.Dispatch(context.Background(), Event{Kind: KindSuccess}))

	// A different kind inside the window is still a silent no-op
	d.now = func() time.Time { return base.Add(500 * time.Millisecond) }
	assert.False(t, d.Dispatch(context.Background(), Event{Kind: KindError}))

	d.now = func() time.Time { return base.Add(1999 * time.Millisecond) }
	assert.False(t, d.Dispatch(context.Background(), Event{Kind: KindSuccess}))

	// Past the window feedback flows again
	d.now = func() time.Time { return base.Add(2 * time.Second) }
	assert.True(t, d.Dispatch(context.Background(), Event{Kind: KindSuccess}))

	require.Eventually(t, func() bool { return audio.count() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return haptic.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDispatchChannelFailureDoesNotBlockOthers(t *testing.T) {
	d, audio, haptic, visual, push := newTestDispatcher(time.Millisecond)
	audio.err = fmt.Errorf("AudioContext not supported")

	require.True(t, d.Dispatch(context.Background(), Event{Kind: KindSuccess}))

	require.Eventually(t, func() bool {
		return haptic.count() == 1 && visual.count() == 1 && push.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPatterns(t *testing.T) {
	assert.Equal(t, PatternSuccess, Pattern(KindSuccess))
	assert.Equal(t, PatternError, Pattern(KindError))
	assert.Equal(t, PatternWarning, Pattern(KindWarning))
}

func TestCueQueueBoundedDrain(t *testing.T) {
	q := NewCueQueue(3)
	for i := 0; i < 5; i++ {
		q.push(Cue{Surface: "visual", Message: fmt.Sprintf("cue-%d", i)})
	}

	cues := q.Drain()
	require.Len(t, cues, 3)
	// Oldest dropped first
	assert.Equal(t, "cue-2", cues[0].Message)
	assert.Equal(t, "cue-4", cues[2].Message)

	assert.Empty(t, q.Drain())
}
