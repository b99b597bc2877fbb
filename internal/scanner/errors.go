package scanner

import (
	"fmt"
	"time"
)

// ErrorKind groups scan failures by how the caller should react.
type ErrorKind string

const (
	// KindCapture covers hardware failures (permission denied, no device,
	// device busy). Fatal to the session.
	KindCapture ErrorKind = "capture"
	// KindValidation covers unknown or inactive codes. Retryable per scan.
	KindValidation ErrorKind = "validation"
	// KindSequence covers order/timing rejections. Retryable, carries
	// structured context such as the remaining cooldown.
	KindSequence ErrorKind = "sequence"
	// KindTransient covers store/network failures. Retryable; the sequence
	// state must not have advanced.
	KindTransient ErrorKind = "transient"
)

// ScanError is the only error type the scan pipeline surfaces to callers.
type ScanError struct {
	Kind              ErrorKind
	Message           string
	CooldownRemaining time.Duration
	Err               error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ScanError) Unwrap() error { return e.Err }

func errNotFound(code string) *ScanError {
	return &ScanError{Kind: KindValidation, Message: fmt.Sprintf("scan code %q not found", code)}
}

func errInactive(name string) *ScanError {
	return &ScanError{Kind: KindValidation, Message: fmt.Sprintf("employee %s is inactive", name)}
}

func errOutOfOrder() *ScanError {
	return &ScanError{
		Kind:    KindSequence,
		Message: "scan time precedes the last recorded phase, check the device clock",
	}
}

func errDayComplete() *ScanError {
	return &ScanError{Kind: KindSequence, Message: "attendance for today is already complete"}
}

func errCooldown(remaining time.Duration) *ScanError {
	mins := int(remaining.Minutes())
	secs := int(remaining.Seconds()) % 60
	return &ScanError{
		Kind:              KindSequence,
		Message:           fmt.Sprintf("please wait %dm %ds before checking in again", mins, secs),
		CooldownRemaining: remaining,
	}
}

func errTransient(err error) *ScanError {
	return &ScanError{Kind: KindTransient, Message: "attendance store unavailable, please try again", Err: err}
}
