package dto

import "time"

type CreateInput struct {
	UserID string
	Type   string
	Data   map[string]string
}

type SessionOutput struct {
	UserID    string
	Type      string
	Data      map[string]string
	CreatedAt time.Time
	ExpiresAt time.Time
	// Replaced is set by Create when a live session was overwritten.
	Replaced bool
}

type SaveInput struct {
	UserID string
	Data   map[string]string
}
