package model

import "time"

// AuditEvent is a side-channel record of an engine action.
type AuditEvent struct {
	ID           string         `json:"id"`
	EventType    string         `json:"eventType"`
	PerformedBy  string         `json:"performedBy"`
	TargetEntity string         `json:"targetEntity"`
	TargetID     string         `json:"targetId"`
	Action       string         `json:"action"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// NotificationType names an investor-facing event.
type NotificationType string

const (
	NotifyReadyToSign           NotificationType = "ready_to_sign"
	NotifyDistributionAnnounced NotificationType = "distribution_announced"
	NotifyPaymentCompleted      NotificationType = "payment_completed"
)

// Notification is one investor-facing message handed to the notification sink.
type Notification struct {
	Type       NotificationType  `json:"type"`
	InvestorID string            `json:"investorId"`
	Subject    string            `json:"subject"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}
