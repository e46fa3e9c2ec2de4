package model

import (
	"context"
	"time"
)

// EventType is the routing key of a domain event.
type EventType string

const (
	EventUserRegistered  EventType = "user.registered"
	EventCourseEnrolled  EventType = "course.enrolled"
	EventCourseCompleted EventType = "course.completed"
)

// Event is a domain event handed to downstream collaborators such as
// gamification and notifications.
type Event struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	CourseIDs  []string  `json:"course_ids,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
