package models

import "time"

// Project represents a project record as served by the QubicBall API.
//
// Version is the optimistic-concurrency counter. It is owned by the server:
// incremented on every successful update, required verbatim on every write.
// The client never fabricates or advances it.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"owner_id"`
	Owner       *User     `json:"owner,omitempty"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
