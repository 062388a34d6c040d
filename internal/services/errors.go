package services

import "errors"

// Validation errors. Returned before any transaction begins.
var (
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidLocation = errors.New("invalid location")
	ErrInvalidEvent    = errors.New("invalid event_name")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidDate     = errors.New("invalid date, expected YYYY-MM-DD")
	ErrFilterRequired  = errors.New("select at least one filter (event, location, status, from, to)")
)

// Conflict errors. Detected under lock or by a unique constraint.
var (
	ErrDuplicateToken      = errors.New("token is already issued")
	ErrActiveEventConflict = errors.New("another event is already active at this location")
	ErrUserExists          = errors.New("username already exists")
	ErrEventExists         = errors.New("event name already exists")
)

// Not-found errors.
var (
	ErrRecordNotFound = errors.New("record not found or already returned")
	ErrUserNotFound   = errors.New("user not found")
	ErrEventNotFound  = errors.New("event not found")
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrStorage wraps unexpected database failures. Callers see a generic
// message; the cause is logged.
var ErrStorage = errors.New("storage failure")
