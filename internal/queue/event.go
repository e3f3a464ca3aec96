// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Event types published by the API.
const (
	UserRegistered = "user.registered"
	EntityCreated  = "created"
	EntityUpdated  = "updated"
	EntityDeleted  = "deleted"
)

// Entity names carried in Event.Entity.
const (
	EntityUser    = "user"
	EntityStudent = "student"
	EntityCourse  = "course"
	EntityTeacher = "teacher"
)

// Event is published after a successful write.  It carries identifiers
// only; consumers that need the record read it from the API.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Entity     string    `json:"entity"`
	EntityID   uint64    `json:"entity_id"`
	ActorID    uint64    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps a fresh id and the current UTC time.  For entity writes
// typ is entity + "." + action, e.g. "course.updated".
func NewEvent(entity, action string, entityID, actorID uint64) Event {
	typ := entity + "." + action
	if entity == EntityUser && action == EntityCreated {
		typ = UserRegistered
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Entity:     entity,
		EntityID:   entityID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}
