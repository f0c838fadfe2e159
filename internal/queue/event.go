// Package queue defines the domain events exchanged over RabbitMQ, the
// publisher used by the services and the audit consumer.
package queue

import "time"

// QueueName is the durable queue every domain event is routed to.
const QueueName = "smartplate.events"

const (
	EventUserRegistered     = "user.registered"
	EventRoleAssigned       = "role.assigned"
	EventNGOApproved        = "ngo.approved"
	EventRequestCreated     = "request.created"
	EventFulfillmentCreated = "fulfillment.created"
)

// Event is a single audit-worthy fact. ActorID is the user who caused it;
// SubjectID is the record it concerns (target user, request or fulfillment)
// when that differs from the actor.
type Event struct {
	Type       string `json:"type"`
	ActorID    string `json:"actor_id"`
	SubjectID  string `json:"subject_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

func NewEvent(typ, actorID string, at time.Time) Event {
	return Event{Type: typ, ActorID: actorID, OccurredAt: at.UTC().Format(time.RFC3339)}
}

func (e Event) WithSubject(id string) Event  { e.SubjectID = id; return e }
func (e Event) WithEmail(email string) Event { e.Email = email; return e }
func (e Event) WithRole(role string) Event   { e.Role = role; return e }
