// Package events publishes service request lifecycle events.
package events

import (
	"context"
	"time"

	"go-servicereq/internal/domain"
)

type Type string

const (
	RequestCreated  Type = "service_request.created"
	RequestUpdated  Type = "service_request.updated"
	RequestDeleted  Type = "service_request.deleted"
	RequestResolved Type = "service_request.resolved"
)

type Event struct {
	Type       Type                 `json:"type"`
	RequestID  int64                `json:"requestId"`
	ProductID  int64                `json:"productId"`
	UserID     int64                `json:"userId"`
	Status     domain.ServiceStatus `json:"status"`
	OccurredAt time.Time            `json:"occurredAt"`
}

func NewEvent(t Type, r domain.ServiceRequest, at time.Time) Event {
	return Event{
		Type:       t,
		RequestID:  r.ID,
		ProductID:  r.ProductID,
		UserID:     r.UserID,
		Status:     r.Status,
		OccurredAt: at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
