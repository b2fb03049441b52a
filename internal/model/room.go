package model

import "time"

// Room is a bookable studio room.
type Room struct {
	ID        int64     `json:"id"`
	StudioID  int64     `json:"studio_id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"` // IANA zone, e.g. "Europe/Berlin"
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
