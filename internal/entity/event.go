package entity

import "time"

const (
	EventJoined   = "joined"
	EventRejected = "rejected"
	EventMove     = "move"
	EventWinner   = "winner"
	EventDraw     = "draw"
	EventReset    = "reset"
	EventLeft     = "left"
)

// Event describes one session state change for the outbound feed.
type Event struct {
	Type   string    `json:"type"`
	Mark   Mark      `json:"mark,omitempty"`
	Row    *int      `json:"row,omitempty"`
	Col    *int      `json:"col,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Board  Board     `json:"board"`
	At     time.Time `json:"at"`
}
