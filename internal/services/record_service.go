package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloakroom-backend/internal/metrics"
	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/repositories"
	"cloakroom-backend/internal/timeutil"

	"go.uber.org/zap"
)

// RecordService owns the deposit and return lifecycle of records.
type RecordService struct {
	store         Store
	locations     []string
	sameDayReturn bool
	notifier      Notifier
	log           *zap.Logger
	now           func() time.Time
}

func NewRecordService(store Store, locations []string, sameDayReturn bool, notifier Notifier, log *zap.Logger) *RecordService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &RecordService{
		store:         store,
		locations:     locations,
		sameDayReturn: sameDayReturn,
		notifier:      notifier,
		log:           log.Named("records"),
		now:           timeutil.Now,
	}
}

// resolveLocation picks the location an operation acts on. Staff are pinned
// to their own location; admins may name one explicitly.
func (s *RecordService) resolveLocation(id models.Identity, requested string) (string, error) {
	loc := strings.TrimSpace(id.Location)
	if loc == "" && id.IsAdmin() {
		loc = strings.TrimSpace(requested)
	}
	if loc == "" {
		return "", fmt.Errorf("%w: location", ErrMissingField)
	}
	if !validLocation(loc, s.locations) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocation, loc)
	}
	return loc, nil
}

// Deposit records a new deposit and its items. At most one deposited record
// may exist per token, location and event.
func (s *RecordService) Deposit(ctx context.Context, id models.Identity, req models.DepositRequest) (int64, error) {
	token := strings.TrimSpace(req.TokenNumber)
	event := strings.TrimSpace(req.EventName)
	if token == "" {
		return 0, fmt.Errorf("%w: token_number", ErrMissingField)
	}
	if event == "" {
		return 0, fmt.Errorf("%w: event_name", ErrMissingField)
	}
	location, err := s.resolveLocation(id, req.Location)
	if err != nil {
		return 0, err
	}

	items := make([]models.Item, 0, len(req.Items))
	for _, it := range req.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return 0, fmt.Errorf("%w: item name", ErrMissingField)
		}
		count := it.Count
		if count <= 0 {
			count = 1
		}
		items = append(items, models.Item{ItemName: name, ItemCount: count, ItemPhotoPath: it.PhotoPath})
	}

	exists, err := s.store.Events().ExistsByName(ctx, event)
	if err != nil {
		return 0, s.storageErr("deposit: check event", err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEvent, event)
	}

	key := models.TokenKey{TokenNumber: token, Location: location, EventName: event}
	rec := &models.Record{
		TokenNumber:     token,
		Location:        location,
		EventName:       event,
		Status:          models.StatusDeposited,
		PersonPhotoPath: req.PersonPhotoPath,
		DepositedAt:     s.now().Truncate(time.Second),
	}

	err = s.store.InTx(ctx, func(r Repos) error {
		_, err := r.Records().LockDeposited(ctx, key, nil, nil)
		if err == nil {
			return ErrDuplicateToken
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		recordID, err := r.Records().Insert(ctx, rec)
		if errors.Is(err, repositories.ErrConflict) {
			return ErrDuplicateToken
		}
		if err != nil {
			return err
		}
		return r.Records().InsertItems(ctx, recordID, items)
	})
	if errors.Is(err, ErrDuplicateToken) {
		metrics.DepositConflictsTotal.Inc()
		return 0, err
	}
	if err != nil {
		return 0, s.storageErr("deposit", err)
	}

	metrics.DepositsTotal.WithLabelValues(location).Inc()
	s.log.Info("record deposited",
		zap.Int64("record_id", rec.ID),
		zap.String("token", token),
		zap.String("location", location),
		zap.String("event", event),
		zap.Int("items", len(items)),
		zap.String("by", id.Username),
	)
	s.notifier.Publish("record.deposited", map[string]any{
		"id": rec.ID, "token_number": token, "location": location, "event_name": event,
	})
	return rec.ID, nil
}

// Return marks the live deposit for the token as returned. With the same-day
// policy only deposits made today (IST) qualify.
func (s *RecordService) Return(ctx context.Context, id models.Identity, token, event, location string) error {
	token = strings.TrimSpace(token)
	event = strings.TrimSpace(event)
	if token == "" {
		return fmt.Errorf("%w: token_number", ErrMissingField)
	}
	if event == "" {
		return fmt.Errorf("%w: event_name", ErrMissingField)
	}
	loc, err := s.resolveLocation(id, location)
	if err != nil {
		return err
	}

	now := s.now().Truncate(time.Second)
	var from, to *time.Time
	if s.sameDayReturn {
		start, end := timeutil.StartOfDay(now), timeutil.EndOfDay(now)
		from, to = &start, &end
	}

	key := models.TokenKey{TokenNumber: token, Location: loc, EventName: event}
	err = s.store.InTx(ctx, func(r Repos) error {
		rec, err := r.Records().LockDeposited(ctx, key, from, to)
		if err != nil {
			return err
		}
		return r.Records().MarkReturned(ctx, rec.ID, now)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrRecordNotFound
	}
	if err != nil {
		return s.storageErr("return", err)
	}

	metrics.ReturnsTotal.WithLabelValues(loc).Inc()
	s.log.Info("record returned",
		zap.String("token", token),
		zap.String("location", loc),
		zap.String("event", event),
		zap.String("by", id.Username),
	)
	s.notifier.Publish("record.returned", map[string]any{
		"token_number": token, "location": loc, "event_name": event,
	})
	return nil
}

// Lookup returns the newest record for a token and event with its items.
// Staff only see their own location; admins see every location.
func (s *RecordService) Lookup(ctx context.Context, id models.Identity, token, event string) (*models.Record, error) {
	token = strings.TrimSpace(token)
	event = strings.TrimSpace(event)
	if token == "" {
		return nil, fmt.Errorf("%w: token_number", ErrMissingField)
	}
	if event == "" {
		return nil, fmt.Errorf("%w: event", ErrMissingField)
	}

	location := ""
	if !id.IsAdmin() {
		if id.Location == "" {
			return nil, fmt.Errorf("%w: location", ErrMissingField)
		}
		location = id.Location
	}

	rec, err := s.store.Records().FindLatest(ctx, token, event, location)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, s.storageErr("lookup", err)
	}
	return rec, nil
}

func (s *RecordService) storageErr(op string, err error) error {
	s.log.Error("storage failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
