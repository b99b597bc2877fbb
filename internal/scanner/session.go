package scanner

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/boscod/scanpresence/internal/capture"
	"github.com/boscod/scanpresence/internal/feedback"
	"github.com/boscod/scanpresence/internal/metrics"
	"github.com/google/uuid"
)

// Decoder turns a frame into a scan code. Actual code recognition is an
// opaque external capability; the pipeline only cares about the decoded
// string.
type Decoder interface {
	Decode(frame capture.Frame) (code string, ok bool)
}

// Status of a scan session as shown to the UI shell.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusScanning     Status = "scanning"
	StatusProcessing   Status = "processing"
	StatusFailed       Status = "failed"
)

// captureFailureLimit is the number of consecutive frame failures after which
// the camera is considered gone and the session ends.
const captureFailureLimit = 5

// SessionConfig tunes one scan session.
type SessionConfig struct {
	ScanCooldown        time.Duration
	LightSampleInterval time.Duration
	PreferredTier       capture.Tier
}

// Session owns one capture/recognition loop together with its dedup gate,
// sequencer, feedback fan-out and interval timers. The device may be nil, in
// which case scans only arrive through HandleScan (a UI shell posting decoded
// codes) and the capture-side loops stay off.
type Session struct {
	ID uuid.UUID

	device     capture.Device
	decoder    Decoder
	dedup      *Deduplicator
	sequencer  *Sequencer
	dispatcher *feedback.Dispatcher
	monitor    *metrics.Monitor
	adviser    *capture.LightingAdviser
	prober     capture.Prober
	cfg        SessionConfig

	mu         sync.Mutex
	status     Status
	failure    *ScanError
	subs       []chan Status
	started    bool
	stopped    bool
	loopCancel context.CancelFunc
	tickCancel context.CancelFunc
	wg         sync.WaitGroup

	now func() time.Time
}

func NewSession(device capture.Device, decoder Decoder, sequencer *Sequencer,
	dispatcher *feedback.Dispatcher, monitor *metrics.Monitor, cfg SessionConfig) *Session {

	s := &Session{
		ID:         uuid.New(),
		device:     device,
		decoder:    decoder,
		dedup:      NewDeduplicator(cfg.ScanCooldown),
		sequencer:  sequencer,
		dispatcher: dispatcher,
		monitor:    monitor,
		cfg:        cfg,
		status:     StatusInitializing,
		now:        time.Now,
	}
	if device != nil {
		s.adviser = capture.NewLightingAdviser(device, cfg.LightSampleInterval, monitor)
	}
	return s
}

// Start negotiates capture settings and launches the recognition loop plus
// the independent interval timers. Capture failures here are fatal to the
// session and carry remediation text for the operator.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.started = true
	s.mu.Unlock()

	s.setStatus(StatusInitializing)

	if s.device == nil {
		log.Printf("[Session %s] No capture device, accepting scans over the API only", s.ID)
		s.setStatus(StatusReady)
		return nil
	}

	profile := s.prober.Profile(s.device)
	settings := capture.SelectSettings(profile, s.cfg.PreferredTier)
	if err := s.device.Apply(settings); err != nil {
		return &ScanError{
			Kind:    KindCapture,
			Message: "could not configure the camera; close other apps using it and check camera permissions",
			Err:     err,
		}
	}
	log.Printf("[Session %s] Capture configured: %dx%d @ %dfps", s.ID, settings.Width, settings.Height, settings.FrameRate)

	loopCtx, loopCancel := context.WithCancel(context.Background())
	tickCtx, tickCancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.loopCancel = loopCancel
	s.tickCancel = tickCancel
	s.mu.Unlock()

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.captureLoop(loopCtx, settings.FrameRate)
	}()
	go func() {
		defer s.wg.Done()
		s.adviser.Run(tickCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.monitor.Run(tickCtx, 30*time.Second)
	}()

	s.setStatus(StatusReady)
	return nil
}

// captureLoop samples frames at the negotiated rate and hands decoded codes
// to the pipeline. Recognition is asynchronous: a decode may overlap an
// in-flight validation, the dedup write-before-process rule covers that.
func (s *Session) captureLoop(ctx context.Context, frameRate int) {
	if frameRate <= 0 {
		frameRate = 10
	}
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	var failures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := s.device.SampleFrame(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				log.Printf("[Session %s] Frame sample failed (%d/%d): %v", s.ID, failures, captureFailureLimit, err)
				if failures >= captureFailureLimit {
					s.failCapture(err)
					return
				}
				continue
			}
			failures = 0
			s.monitor.RecordFrame()

			code, ok := s.decoder.Decode(frame)
			if !ok {
				continue
			}
			s.setStatus(StatusScanning)
			go func() {
				_, _ = s.HandleScan(ctx, code)
			}()
		}
	}
}

// failCapture ends the session after repeated frame failures. The camera is
// gone (unplugged, claimed by another app), so keeping the loop alive would
// only hide the outage from the shell.
func (s *Session) failCapture(cause error) {
	scanErr := &ScanError{
		Kind:    KindCapture,
		Message: "camera stopped delivering frames; reconnect it or close other apps using it, then restart the session",
		Err:     cause,
	}
	s.monitor.RecordRestart(cause.Error())

	s.mu.Lock()
	s.failure = scanErr
	s.mu.Unlock()
	s.setStatus(StatusFailed)

	s.dispatcher.Dispatch(context.Background(), feedback.Event{
		Kind:      feedback.KindError,
		Message:   scanErr.Message,
		Timestamp: s.now(),
	})
	log.Printf("[Session %s] Capture failed: %v", s.ID, cause)

	// Stop waits for the capture loop, which is the caller here
	go s.Stop()
}

// Failure returns the capture error that ended the session, if any.
func (s *Session) Failure() *ScanError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// HandleScan pushes one decoded code through dedup, sequencing and feedback.
// Returns (nil, nil) when the dedup gate suppressed the scan. All other
// errors are *ScanError; none of them crash the loop, the session resets to
// ready after dispatching feedback.
func (s *Session) HandleScan(ctx context.Context, code string) (*Result, error) {
	if !s.dedup.ShouldProcess(code, s.now()) {
		return nil, nil
	}

	s.setStatus(StatusProcessing)
	defer s.setStatus(StatusReady)

	s.monitor.RecordAttempt()
	started := s.now()

	result, err := s.sequencer.Process(ctx, code)
	if err != nil {
		scanErr, ok := err.(*ScanError)
		if !ok {
			scanErr = errTransient(err)
		}
		s.monitor.RecordError(string(scanErr.Kind) + ": " + scanErr.Message)
		s.dispatcher.Dispatch(ctx, feedback.Event{
			Kind:              feedbackKind(scanErr),
			Message:           scanErr.Message,
			Timestamp:         s.now(),
			CooldownRemaining: scanErr.CooldownRemaining,
		})
		return nil, scanErr
	}

	s.monitor.RecordSuccess(s.now().Sub(started))
	s.dispatcher.Dispatch(ctx, feedback.Event{
		Kind:         feedback.KindSuccess,
		Message:      fmt.Sprintf("%s recorded for %s", result.Action.Label(), result.Employee.Name),
		EmployeeName: result.Employee.Name,
		Action:       string(result.Action),
		Timestamp:    result.Timestamp,
		IsLate:       result.IsLate,
	})
	return result, nil
}

// feedbackKind maps scan failures onto feedback severities: timing
// rejections are warnings (the user just has to wait), everything else shows
// as an error.
func feedbackKind(err *ScanError) feedback.Kind {
	if err.Kind == KindSequence && err.CooldownRemaining > 0 {
		return feedback.KindWarning
	}
	return feedback.KindError
}

// Stop tears the session down: capture loop first, then the interval timers,
// then the media device, then the dedup cache. Each step tolerates failure
// of the previous ones.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	loopCancel := s.loopCancel
	tickCancel := s.tickCancel
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	if loopCancel != nil {
		loopCancel()
	}
	if tickCancel != nil {
		tickCancel()
	}
	s.wg.Wait()

	if s.device != nil {
		if err := s.device.Close(); err != nil {
			log.Printf("[Session %s] Failed to release capture device: %v", s.ID, err)
		}
	}

	s.dedup.Reset()

	for _, ch := range subs {
		close(ch)
	}
	log.Printf("[Session %s] Stopped", s.ID)
}

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Subscribe returns a channel of status updates. The channel is closed when
// the session stops; slow consumers miss updates instead of blocking the
// pipeline.
func (s *Session) Subscribe() <-chan Status {
	ch := make(chan Status, 8)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// LightAdvice returns the current lighting guidance, or a neutral default
// when no device is attached.
func (s *Session) LightAdvice() capture.Advice {
	if s.adviser == nil {
		return capture.Advice{Level: capture.LightGood, Message: "No capture device attached."}
	}
	return s.adviser.Current()
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	if s.stopped || s.status == status {
		s.mu.Unlock()
		return
	}
	s.status = status
	subs := make([]chan Status, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- status:
		default:
		}
	}
}
