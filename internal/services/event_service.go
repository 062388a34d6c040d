package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/repositories"
	"cloakroom-backend/internal/timeutil"

	"go.uber.org/zap"
)

// EventService manages the event registry. A location has at most one active
// event at any time.
type EventService struct {
	store     Store
	locations []string
	log       *zap.Logger
	now       func() time.Time
}

func NewEventService(store Store, locations []string, log *zap.Logger) *EventService {
	return &EventService{
		store:     store,
		locations: locations,
		log:       log.Named("events"),
		now:       timeutil.Now,
	}
}

// Create registers an event. New events are active unless the request says
// otherwise.
func (s *EventService) Create(ctx context.Context, req models.CreateEventRequest) (*models.Event, error) {
	name := strings.TrimSpace(req.Name)
	location := strings.TrimSpace(req.Location)
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	if location == "" {
		return nil, fmt.Errorf("%w: location", ErrMissingField)
	}
	if !validLocation(location, s.locations) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	status := req.Status
	if status == "" {
		status = models.EventActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	event := &models.Event{
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		Location:      location,
		Status:        status,
		InchargeName:  strings.TrimSpace(req.InchargeName),
		InchargePhone: strings.TrimSpace(req.InchargePhone),
		CreatedAt:     s.now(),
	}
	if d := strings.TrimSpace(req.EventDate); d != "" {
		day, err := timeutil.ParseDay(d)
		if err != nil {
			return nil, fmt.Errorf("%w: event_date=%q", ErrInvalidDate, d)
		}
		event.EventDate = &day
	}

	err := s.store.InTx(ctx, func(r Repos) error {
		if status == models.EventActive {
			active, err := r.Events().LockActiveAtLocation(ctx, location, 0)
			if err != nil {
				return err
			}
			if len(active) > 0 {
				return ErrActiveEventConflict
			}
		}
		_, err := r.Events().Create(ctx, event)
		return err
	})
	if err != nil {
		return nil, s.mapErr("create event", err)
	}

	s.log.Info("event created",
		zap.Int64("event_id", event.ID),
		zap.String("name", event.Name),
		zap.String("location", event.Location),
		zap.String("status", string(event.Status)),
	)
	return event, nil
}

// SetStatus activates or deactivates an event. Activation fails with
// ErrActiveEventConflict while another event at the location is active.
func (s *EventService) SetStatus(ctx context.Context, id int64, status models.EventStatus) (*models.Event, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var event *models.Event
	err := s.store.InTx(ctx, func(r Repos) error {
		e, err := r.Events().LockByID(ctx, id)
		if err != nil {
			return err
		}
		if status == models.EventActive {
			active, err := r.Events().LockActiveAtLocation(ctx, e.Location, e.ID)
			if err != nil {
				return err
			}
			if len(active) > 0 {
				return ErrActiveEventConflict
			}
		}
		if e.Status != status {
			if err := r.Events().UpdateStatus(ctx, e.ID, status); err != nil {
				return err
			}
			e.Status = status
		}
		event = e
		return nil
	})
	if err != nil {
		return nil, s.mapErr("set event status", err)
	}

	s.log.Info("event status changed", zap.Int64("event_id", id), zap.String("status", string(status)))
	return event, nil
}

// List returns events newest first. An empty location lists every location.
func (s *EventService) List(ctx context.Context, location string, activeOnly bool) ([]models.Event, error) {
	events, err := s.store.Events().List(ctx, location, activeOnly)
	if err != nil {
		return nil, s.mapErr("list events", err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func (s *EventService) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	n, err := s.store.Events().DeleteByNames(ctx, []string{name})
	if err != nil {
		return s.mapErr("delete event", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	s.log.Info("event deleted", zap.String("name", name))
	return nil
}

// DeleteMany removes the named events and reports how many existed.
func (s *EventService) DeleteMany(ctx context.Context, names []string) (int64, error) {
	names = NormalizeValues(names)
	if len(names) == 0 {
		return 0, fmt.Errorf("%w: names", ErrMissingField)
	}
	n, err := s.store.Events().DeleteByNames(ctx, names)
	if err != nil {
		return 0, s.mapErr("delete events", err)
	}
	s.log.Info("events deleted", zap.Strings("names", names), zap.Int64("deleted", n))
	return n, nil
}

func (s *EventService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.store.Events().DeleteAll(ctx)
	if err != nil {
		return 0, s.mapErr("delete all events", err)
	}
	s.log.Warn("all events deleted", zap.Int64("deleted", n))
	return n, nil
}

func (s *EventService) mapErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrActiveEventConflict), errors.Is(err, repositories.ErrActiveEventExists):
		return ErrActiveEventConflict
	case errors.Is(err, repositories.ErrConflict):
		return ErrEventExists
	case errors.Is(err, repositories.ErrNotFound):
		return ErrEventNotFound
	}
	s.log.Error("storage failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
