package feedback

import (
	"context"
	"log"
	"sync"
	"time"
)

// The audio, haptic and flash surfaces live on the kiosk/UI side; the server
// keeps a short queue of cues per surface that the shell drains over the
// status API. Cue delivery to the physical hardware is the shell's problem.

// Cue is one pending feedback instruction for the UI shell.
type Cue struct {
	Surface string    `json:"surface"` // audio, haptic, visual
	Kind    Kind      `json:"kind"`
	Message string    `json:"message,omitempty"`
	Pattern []int     `json:"pattern,omitempty"` // haptic only
	At      time.Time `json:"at"`
}

// CueQueue is a bounded FIFO of pending cues shared by the shell-facing
// channels. Old cues are dropped first; the shell only cares about recent
// ones.
type CueQueue struct {
	mu    sync.Mutex
	cues  []Cue
	limit int
}

func NewCueQueue(limit int) *CueQueue {
	if limit <= 0 {
		limit = 20
	}
	return &CueQueue{limit: limit}
}

func (q *CueQueue) push(c Cue) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cues = append(q.cues, c)
	if len(q.cues) > q.limit {
		q.cues = q.cues[len(q.cues)-q.limit:]
	}
}

// Drain returns all pending cues and empties the queue.
func (q *CueQueue) Drain() []Cue {
	q.mu.Lock()
	defer q.mu.Unlock()
	cues := q.cues
	q.cues = nil
	return cues
}

// AudioChannel queues an audible cue for the shell.
type AudioChannel struct {
	queue *CueQueue
}

func NewAudioChannel(queue *CueQueue) *AudioChannel {
	return &AudioChannel{queue: queue}
}

func (c *AudioChannel) Name() string { return "audio" }

func (c *AudioChannel) Deliver(ctx context.Context, ev Event) error {
	c.queue.push(Cue{Surface: "audio", Kind: ev.Kind, Message: ev.Message, At: ev.Timestamp})
	return nil
}

// HapticChannel queues a vibration pattern for the shell.
type HapticChannel struct {
	queue *CueQueue
}

func NewHapticChannel(queue *CueQueue) *HapticChannel {
	return &HapticChannel{queue: queue}
}

func (c *HapticChannel) Name() string { return "haptic" }

func (c *HapticChannel) Deliver(ctx context.Context, ev Event) error {
	c.queue.push(Cue{Surface: "haptic", Kind: ev.Kind, Pattern: Pattern(ev.Kind), At: ev.Timestamp})
	return nil
}

// VisualChannel queues a transient flash/message for the shell.
type VisualChannel struct {
	queue *CueQueue
}

func NewVisualChannel(queue *CueQueue) *VisualChannel {
	return &VisualChannel{queue: queue}
}

func (c *VisualChannel) Name() string { return "visual" }

func (c *VisualChannel) Deliver(ctx context.Context, ev Event) error {
	c.queue.push(Cue{Surface: "visual", Kind: ev.Kind, Message: ev.Message, At: ev.Timestamp})
	return nil
}

// LogChannel is a channel that only writes to the server log. Used for
// surfaces the deployment has no hardware for.
type LogChannel struct {
	name string
}

func NewLogChannel(name string) *LogChannel {
	return &LogChannel{name: name}
}

func (c *LogChannel) Name() string { return c.name }

func (c *LogChannel) Deliver(ctx context.Context, ev Event) error {
	log.Printf("[Feedback] %s %s: %s", c.name, ev.Kind, ev.Message)
	return nil
}
