package models

import "time"

// RecordFilter selects records by set membership on each dimension and an
// inclusive deposited_at range. Empty dimensions do not constrain.
type RecordFilter struct {
	Events    []string       `json:"events,omitempty"`
	Locations []string       `json:"locations,omitempty"`
	Statuses  []RecordStatus `json:"statuses,omitempty"`
	From      *time.Time     `json:"from,omitempty"`
	To        *time.Time     `json:"to,omitempty"`
}

func (f RecordFilter) IsEmpty() bool {
	return len(f.Events) == 0 && len(f.Locations) == 0 && len(f.Statuses) == 0 && f.From == nil && f.To == nil
}

// Matches reports whether r satisfies every set dimension of f.
func (f RecordFilter) Matches(r Record) bool {
	if len(f.Events) > 0 && !contains(f.Events, r.EventName) {
		return false
	}
	if len(f.Locations) > 0 && !contains(f.Locations, r.Location) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if s == r.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && r.DepositedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && r.DepositedAt.After(*f.To) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
