package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloakroom-backend/internal/metrics"
	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/storage"
	"cloakroom-backend/internal/timeutil"

	"go.uber.org/zap"
)

// PreviewLimit caps the rows and the count a preview returns.
const PreviewLimit = 1000

// Audit actions recorded by the deletion pipeline.
const (
	ActionDeleteByFilter      = "delete_by_filter"
	ActionPurgeReturned       = "delete_permanent_returned"
	ActionDeleteReturnedRange = "delete_returned_by_range"
	ActionDeleteLocation      = "delete_user_location_records"
)

// BlobRemover deletes stored photos. A failed removal is reported, not raised.
type BlobRemover interface {
	Delete(ctx context.Context, p string) models.UnlinkOutcome
}

// AuditSink persists audit entries.
type AuditSink interface {
	Append(ctx context.Context, entry models.AuditEntry) error
}

// PreviewResult shows what a deletion would remove. Count is capped at
// PreviewLimit like Rows; Total is the exact number of matching records.
type PreviewResult struct {
	Count int64           `json:"count"`
	Total int64           `json:"total"`
	Rows  []models.Record `json:"rows"`
}

type DeleteResult struct {
	DeletedRows int64                       `json:"deletedRows"`
	PerRecord   []models.RecordUnlinkReport `json:"perRecord"`
}

// DeletionService removes records in bulk. Every variant runs through the same
// pipeline: lock the matching rows, collect their items, unlink photos, delete
// the rows, commit and then append an audit entry.
type DeletionService struct {
	store     Store
	blobs     BlobRemover
	audit     AuditSink
	locations []string
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
}

func NewDeletionService(store Store, blobs BlobRemover, audit AuditSink, locations []string, notifier Notifier, log *zap.Logger) *DeletionService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &DeletionService{
		store:     store,
		blobs:     blobs,
		audit:     audit,
		locations: locations,
		notifier:  notifier,
		log:       log.Named("deletion"),
		now:       timeutil.Now,
	}
}

// Preview reports what DeleteByFilter would remove. An empty filter is
// rejected before any read.
func (s *DeletionService) Preview(ctx context.Context, f models.RecordFilter) (*PreviewResult, error) {
	if f.IsEmpty() {
		return nil, ErrFilterRequired
	}
	return s.preview(ctx, f)
}

func (s *DeletionService) DeleteByFilter(ctx context.Context, actor models.Actor, f models.RecordFilter) (*DeleteResult, error) {
	if f.IsEmpty() {
		return nil, ErrFilterRequired
	}
	return s.run(ctx, actor, ActionDeleteByFilter, f, nil)
}

func (s *DeletionService) PreviewReturned(ctx context.Context) (*PreviewResult, error) {
	return s.preview(ctx, returnedFilter(nil, nil))
}

// PurgeReturned removes every returned record.
func (s *DeletionService) PurgeReturned(ctx context.Context, actor models.Actor) (*DeleteResult, error) {
	return s.run(ctx, actor, ActionPurgeReturned, returnedFilter(nil, nil), nil)
}

func (s *DeletionService) PreviewReturnedRange(ctx context.Context, from, to string) (*PreviewResult, error) {
	f, err := rangeFilter(from, to)
	if err != nil {
		return nil, err
	}
	return s.preview(ctx, f)
}

// DeleteReturnedRange removes returned records deposited between from and to,
// both inclusive YYYY-MM-DD dates.
func (s *DeletionService) DeleteReturnedRange(ctx context.Context, actor models.Actor, from, to string) (*DeleteResult, error) {
	f, err := rangeFilter(from, to)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, actor, ActionDeleteReturnedRange, f, nil)
}

// DeleteLocationRecords removes every record held at location.
func (s *DeletionService) DeleteLocationRecords(ctx context.Context, actor models.Actor, location string) (*DeleteResult, error) {
	return s.DeleteLocationRecordsWith(ctx, actor, location, nil)
}

// DeleteLocationRecordsWith removes every record held at location and runs
// also in the same transaction, after the rows are locked and before any photo
// is unlinked. An error from also rolls the whole deletion back.
func (s *DeletionService) DeleteLocationRecordsWith(ctx context.Context, actor models.Actor, location string, also func(r Repos) error) (*DeleteResult, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: location", ErrMissingField)
	}
	if !validLocation(location, s.locations) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}
	return s.run(ctx, actor, ActionDeleteLocation, models.RecordFilter{Locations: []string{location}}, also)
}

func returnedFilter(from, to *time.Time) models.RecordFilter {
	return models.RecordFilter{
		Statuses: []models.RecordStatus{models.StatusReturned},
		From:     from,
		To:       to,
	}
}

func rangeFilter(from, to string) (models.RecordFilter, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return models.RecordFilter{}, fmt.Errorf("%w: from and to", ErrMissingField)
	}
	start, err := timeutil.DayStart(from)
	if err != nil {
		return models.RecordFilter{}, fmt.Errorf("%w: from=%q", ErrInvalidDate, from)
	}
	end, err := timeutil.DayEnd(to)
	if err != nil {
		return models.RecordFilter{}, fmt.Errorf("%w: to=%q", ErrInvalidDate, to)
	}
	if start.After(end) {
		return models.RecordFilter{}, fmt.Errorf("%w: from is after to", ErrInvalidDate)
	}
	return returnedFilter(&start, &end), nil
}

func (s *DeletionService) preview(ctx context.Context, f models.RecordFilter) (*PreviewResult, error) {
	count, err := s.store.Records().CountByFilter(ctx, f)
	if err != nil {
		return nil, s.storageErr("preview count", err)
	}
	rows, err := s.store.Records().ListByFilter(ctx, f, PreviewLimit)
	if err != nil {
		return nil, s.storageErr("preview rows", err)
	}
	if rows == nil {
		rows = []models.Record{}
	}
	return &PreviewResult{Count: min(count, PreviewLimit), Total: count, Rows: rows}, nil
}

// run is the single deletion pipeline. Photo removal is best-effort and never
// aborts the transaction. The audit entry is written only after commit and a
// failure to write it is logged, not returned.
func (s *DeletionService) run(ctx context.Context, actor models.Actor, action string, f models.RecordFilter, also func(r Repos) error) (*DeleteResult, error) {
	if f.IsEmpty() {
		return nil, ErrFilterRequired
	}

	result := &DeleteResult{PerRecord: []models.RecordUnlinkReport{}}
	err := s.store.InTx(ctx, func(r Repos) error {
		records, err := r.Records().LockByFilter(ctx, f)
		if err != nil {
			return err
		}
		if also != nil {
			if err := also(r); err != nil {
				return err
			}
		}
		if len(records) == 0 {
			return nil
		}

		ids := make([]int64, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		items, err := r.Records().ItemsByRecordIDs(ctx, ids)
		if err != nil {
			return err
		}
		byRecord := make(map[int64][]models.Item, len(records))
		for _, it := range items {
			byRecord[it.RecordID] = append(byRecord[it.RecordID], it)
		}

		reports := make([]models.RecordUnlinkReport, 0, len(records))
		for _, rec := range records {
			reports = append(reports, s.unlinkRecord(ctx, rec, byRecord[rec.ID]))
		}

		deleted, err := r.Records().DeleteByIDs(ctx, ids)
		if err != nil {
			return err
		}
		result.DeletedRows = deleted
		result.PerRecord = reports
		return nil
	})
	if errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, s.storageErr(action, err)
	}

	metrics.RecordsDeletedTotal.WithLabelValues(action).Add(float64(result.DeletedRows))
	s.log.Info("records deleted",
		zap.String("action", action),
		zap.String("admin", actor.Username),
		zap.Int64("deleted_rows", result.DeletedRows),
	)

	entry := models.AuditEntry{
		Timestamp:   s.now(),
		Admin:       actor.Username,
		Action:      action,
		Filters:     f,
		DeletedRows: result.DeletedRows,
		PerRecord:   result.PerRecord,
		IP:          actor.IP,
	}
	if err := s.audit.Append(context.WithoutCancel(ctx), entry); err != nil {
		metrics.AuditFailuresTotal.Inc()
		s.log.Warn("audit append failed",
			zap.String("action", action),
			zap.Int64("deleted_rows", result.DeletedRows),
			zap.Error(err),
		)
	}

	s.notifier.Publish("records.deleted", map[string]any{
		"action": action, "deletedRows": result.DeletedRows,
	})
	return result, nil
}

func (s *DeletionService) unlinkRecord(ctx context.Context, rec models.Record, items []models.Item) models.RecordUnlinkReport {
	report := models.RecordUnlinkReport{
		ID:              rec.ID,
		PersonPhotoPath: rec.PersonPhotoPath,
		PersonUnlink:    s.unlink(ctx, rec.PersonPhotoPath),
	}
	for _, it := range items {
		report.Items = append(report.Items, models.ItemUnlinkReport{
			ID:            it.ID,
			ItemPhotoPath: it.ItemPhotoPath,
			Unlink:        s.unlink(ctx, it.ItemPhotoPath),
		})
	}
	return report
}

func (s *DeletionService) unlink(ctx context.Context, p *string) models.UnlinkOutcome {
	var out models.UnlinkOutcome
	if p == nil || *p == "" {
		out = models.UnlinkOutcome{Success: false, Reason: storage.ReasonNoPath}
	} else {
		out = s.blobs.Delete(ctx, *p)
	}

	switch {
	case out.Success:
		metrics.BlobUnlinkTotal.WithLabelValues("success").Inc()
	case out.Reason == storage.ReasonNoPath:
		metrics.BlobUnlinkTotal.WithLabelValues("no_path").Inc()
	case out.Reason == storage.ReasonMissing:
		metrics.BlobUnlinkTotal.WithLabelValues("missing").Inc()
	default:
		metrics.BlobUnlinkTotal.WithLabelValues("error").Inc()
		s.log.Warn("photo unlink failed", zap.String("path", out.Path), zap.String("reason", out.Reason))
	}
	return out
}

func (s *DeletionService) storageErr(op string, err error) error {
	s.log.Error("storage failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
