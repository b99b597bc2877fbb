package feedback

import (
	"context"
	"log"
	"sync"
	"time"
)

// Kind of feedback to deliver.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
)

// Event carries the context the channels need to render feedback.
type Event struct {
	Kind              Kind
	Message           string
	EmployeeName      string
	Action            string
	Timestamp         time.Time
	IsLate            bool
	CooldownRemaining time.Duration
}

// Haptic vibration patterns in milliseconds, vibrate/pause alternating.
var (
	PatternSuccess = []int{100, 50, 300, 50, 100} // short-long-short
	PatternError   = []int{600}                   // single long buzz
	PatternWarning = []int{120}                   // single short pulse
)

// Channel delivers feedback on one physical surface. Implementations must be
// safe for concurrent use; failures are theirs to log, the dispatcher only
// guards against panics.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// DefaultCooldown is the shared window during which any further feedback is a
// silent no-op.
const DefaultCooldown = 2 * time.Second

// Dispatcher fans feedback out to voice, haptic, visual and push channels.
// One global cooldown is shared across all kinds so rapid repeat scans or
// flapping light conditions cannot storm the user or the push gateway.
type Dispatcher struct {
	audio  Channel
	haptic Channel
	visual Channel
	push   Channel

	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewDispatcher(audio, haptic, visual, push Channel, cooldown time.Duration) *Dispatcher {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Dispatcher{
		audio:    audio,
		haptic:   haptic,
		visual:   visual,
		push:     push,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Dispatch delivers ev on the channels appropriate for its kind. Channels run
// concurrently and best-effort: a broken channel never blocks the others, and
// Dispatch itself never fails. Returns whether the event passed the throttle.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) bool {
	d.mu.Lock()
	now := d.now()
	if !d.last.IsZero() && now.Sub(d.last) < d.cooldown {
		d.mu.Unlock()
		return false
	}
	d.last = now
	d.mu.Unlock()

	var channels []Channel
	switch ev.Kind {
	case KindSuccess:
		// Audible cue, short-long-short haptic, transient visual confirmation
		// and the push gateway, no ordering dependency between them.
		channels = []Channel{d.audio, d.haptic, d.visual, d.push}
	case KindError:
		// Longer haptic pattern, no audio cue.
		channels = []Channel{d.haptic, d.visual}
	case KindWarning:
		channels = []Channel{d.haptic}
	}

	for _, ch := range channels {
		if ch == nil {
			continue
		}
		go d.deliver(ctx, ch, ev)
	}
	return true
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Feedback] Channel %s panicked: %v", ch.Name(), r)
		}
	}()
	if err := ch.Deliver(ctx, ev); err != nil {
		log.Printf("[Feedback] Channel %s failed: %v", ch.Name(), err)
	}
}

// Pattern returns the haptic pattern for a feedback kind.
func Pattern(kind Kind) []int {
	switch kind {
	case KindSuccess:
		return PatternSuccess
	case KindError:
		return PatternError
	default:
		return PatternWarning
	}
}
