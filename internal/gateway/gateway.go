package gateway

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/boscod/scanpresence/internal/feedback"
	"github.com/boscod/scanpresence/internal/rabbitmq"
)

// Notifier publishes attendance events to the external push-notification
// gateway over RabbitMQ. Everything here is fire-and-forget: publish failures
// are logged and never propagated into the scan flow. A nil client degrades
// to log-only, matching the optional-broker startup.
type Notifier struct {
	mq *rabbitmq.Client
}

func NewNotifier(mq *rabbitmq.Client) *Notifier {
	return &Notifier{mq: mq}
}

type attendanceEventPayload struct {
	EmployeeName      string  `json:"employee_name"`
	Action            string  `json:"action"`
	Timestamp         string  `json:"timestamp"`
	IsLate            bool    `json:"is_late,omitempty"`
	CooldownRemaining *string `json:"cooldown_remaining,omitempty"`
}

type absencePayload struct {
	EmployeeName string `json:"employee_name"`
	Date         string `json:"date"`
}

// NotifyAttendanceEvent reports a recorded (or rejected-with-cooldown) scan.
func (n *Notifier) NotifyAttendanceEvent(employeeName, action string, ts time.Time, isLate bool, cooldownRemaining time.Duration) {
	payload := attendanceEventPayload{
		EmployeeName: employeeName,
		Action:       action,
		Timestamp:    ts.Format(time.RFC3339),
		IsLate:       isLate,
	}
	if cooldownRemaining > 0 {
		s := cooldownRemaining.Round(time.Second).String()
		payload.CooldownRemaining = &s
	}
	n.publish(rabbitmq.RoutingKeyEvent, payload)
}

// NotifyAbsence reports an employee with no attendance record for the day.
func (n *Notifier) NotifyAbsence(employeeName, date string) {
	n.publish(rabbitmq.RoutingKeyAbsence, absencePayload{EmployeeName: employeeName, Date: date})
}

func (n *Notifier) publish(routingKey string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Gateway] Failed to marshal %s payload: %v", routingKey, err)
		return
	}
	if n.mq == nil {
		log.Printf("[Gateway] Push gateway not configured, dropping %s: %s", routingKey, body)
		return
	}
	if err := n.mq.PublishJSON(routingKey, body); err != nil {
		log.Printf("[Gateway] Failed to publish %s: %v", routingKey, err)
	}
}

// PushChannel adapts the notifier to the feedback dispatcher, so successful
// scans fan out to the push gateway alongside the on-device channels.
type PushChannel struct {
	notifier *Notifier
}

func NewPushChannel(n *Notifier) *PushChannel {
	return &PushChannel{notifier: n}
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Deliver(ctx context.Context, ev feedback.Event) error {
	c.notifier.NotifyAttendanceEvent(ev.EmployeeName, ev.Action, ev.Timestamp, ev.IsLate, ev.CooldownRemaining)
	return nil
}
