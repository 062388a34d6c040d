package models

import "time"

type RecordStatus string

const (
	StatusDeposited RecordStatus = "deposited"
	StatusReturned  RecordStatus = "returned"
)

func (s RecordStatus) Valid() bool {
	return s == StatusDeposited || s == StatusReturned
}

// Record is one deposit of items against a token at a location for an event.
type Record struct {
	ID              int64        `json:"id"`
	TokenNumber     string       `json:"token_number"`
	Location        string       `json:"location"`
	EventName       string       `json:"event_name"`
	Status          RecordStatus `json:"status"`
	PersonPhotoPath *string      `json:"person_photo_path"`
	DepositedAt     time.Time    `json:"deposited_at"`
	ReturnedAt      *time.Time   `json:"returned_at"`
	Items           []Item       `json:"items,omitempty"`
}

type Item struct {
	ID            int64   `json:"id"`
	RecordID      int64   `json:"record_id"`
	ItemName      string  `json:"item_name"`
	ItemCount     int     `json:"item_count"`
	ItemPhotoPath *string `json:"item_photo_path"`
}

// TokenKey identifies the single live deposit a token may have.
type TokenKey struct {
	TokenNumber string
	Location    string
	EventName   string
}

// NewItem is one line of a deposit request. Count defaults to 1.
type NewItem struct {
	Name      string  `json:"name"`
	Count     int     `json:"count"`
	PhotoPath *string `json:"item_photo_path,omitempty"`
}

// DepositRequest carries an already-staged deposit. Photo paths point at
// blobs the upload layer has stored.
type DepositRequest struct {
	TokenNumber     string
	EventName       string
	Location        string
	Items           []NewItem
	PersonPhotoPath *string
}
