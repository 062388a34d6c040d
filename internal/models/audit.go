package models

import "time"

// UnlinkOutcome is the result of one best-effort blob deletion.
type UnlinkOutcome struct {
	Path    string `json:"path"`
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

type ItemUnlinkReport struct {
	ID            int64         `json:"id"`
	ItemPhotoPath *string       `json:"item_photo_path"`
	Unlink        UnlinkOutcome `json:"item_photo_path_unlink"`
}

// RecordUnlinkReport lists the blob deletions attempted for one record.
type RecordUnlinkReport struct {
	ID              int64              `json:"id"`
	PersonPhotoPath *string            `json:"person_photo_path"`
	PersonUnlink    UnlinkOutcome      `json:"person_photo_path_unlink"`
	Items           []ItemUnlinkReport `json:"items,omitempty"`
}

// AuditEntry is one append-only line describing a destructive admin action.
type AuditEntry struct {
	ID          int64                `json:"-"`
	Timestamp   time.Time            `json:"timestamp"`
	Admin       string               `json:"admin"`
	Action      string               `json:"action"`
	Filters     RecordFilter         `json:"filters"`
	DeletedRows int64                `json:"deletedRows"`
	PerRecord   []RecordUnlinkReport `json:"perRecord"`
	IP          string               `json:"ip"`
}
