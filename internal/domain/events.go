package domain

import (
	"context"
	"time"
)

const (
	EventRequestCreated       = "request.created"
	EventRequestAssigned      = "request.assigned"
	EventRequestStatusChanged = "request.status_changed"
	EventRequestDeleted       = "request.deleted"
	EventPaymentRecorded      = "payment.recorded"
	EventUserRegistered       = "user.registered"
	EventUserRoleChanged      = "user.role_changed"
	EventUserStatusChanged    = "user.status_changed"
)

type Event struct {
	Type       string    `json:"type"`
	SubjectID  string    `json:"subject_id"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}
