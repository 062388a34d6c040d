package services

import (
	"fmt"
	"strings"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/timeutil"
)

// FilterInput is the raw, caller-supplied form of a record filter. Each
// multi-valued field may hold repeated values, comma-separated values, or both.
type FilterInput struct {
	Events    []string
	Locations []string
	Statuses  []string
	From      string
	To        string
}

// NormalizeValues splits comma-separated values, trims them, and drops empty
// and repeated entries while keeping first-seen order.
func NormalizeValues(raw []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

// ParseFilter validates in and converts it to a typed filter. Dates are
// YYYY-MM-DD and widen to the whole IST day.
func ParseFilter(in FilterInput, locations []string) (models.RecordFilter, error) {
	var f models.RecordFilter

	f.Events = NormalizeValues(in.Events)

	for _, loc := range NormalizeValues(in.Locations) {
		if !validLocation(loc, locations) {
			return models.RecordFilter{}, fmt.Errorf("%w: %q", ErrInvalidLocation, loc)
		}
		f.Locations = append(f.Locations, loc)
	}

	for _, s := range NormalizeValues(in.Statuses) {
		status := models.RecordStatus(strings.ToLower(s))
		if !status.Valid() {
			return models.RecordFilter{}, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
		}
		f.Statuses = append(f.Statuses, status)
	}

	if from := strings.TrimSpace(in.From); from != "" {
		t, err := timeutil.DayStart(from)
		if err != nil {
			return models.RecordFilter{}, fmt.Errorf("%w: from=%q", ErrInvalidDate, from)
		}
		f.From = &t
	}
	if to := strings.TrimSpace(in.To); to != "" {
		t, err := timeutil.DayEnd(to)
		if err != nil {
			return models.RecordFilter{}, fmt.Errorf("%w: to=%q", ErrInvalidDate, to)
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return models.RecordFilter{}, fmt.Errorf("%w: from is after to", ErrInvalidDate)
	}

	return f, nil
}

func validLocation(loc string, locations []string) bool {
	for _, l := range locations {
		if l == loc {
			return true
		}
	}
	return false
}
