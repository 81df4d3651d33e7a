package entity

// Seat binds a connection to the mark it plays.
type Seat struct {
	ConnID     string `json:"conn_id"`
	Mark       Mark   `json:"mark"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}
