package models

import "time"

type EventStatus string

const (
	EventActive   EventStatus = "active"
	EventInactive EventStatus = "inactive"
)

func (s EventStatus) Valid() bool {
	return s == EventActive || s == EventInactive
}

type Event struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Location      string      `json:"location"`
	Status        EventStatus `json:"event_status"`
	InchargeName  string      `json:"event_incharge"`
	InchargePhone string      `json:"incharge_phone"`
	EventDate     *time.Time  `json:"event_date"`
	CreatedAt     time.Time   `json:"created_at"`
}

// CreateEventRequest represents the request body for creating an event
type CreateEventRequest struct {
	Name          string      `json:"name" validate:"required,max=200"`
	Description   string      `json:"description" validate:"max=1000"`
	Location      string      `json:"location" validate:"required"`
	Status        EventStatus `json:"event_status" validate:"omitempty,oneof=active inactive"`
	InchargeName  string      `json:"event_incharge" validate:"max=200"`
	InchargePhone string      `json:"incharge_phone" validate:"omitempty,max=20"`
	EventDate     string      `json:"event_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateEventStatusRequest represents the body of PATCH /api/admin/events/{id}
type UpdateEventStatusRequest struct {
	Status EventStatus `json:"event_status" validate:"required,oneof=active inactive"`
}

// DeleteEventsRequest selects events for bulk deletion by name.
type DeleteEventsRequest struct {
	Names []string `json:"names" validate:"required,min=1,dive,required"`
}
