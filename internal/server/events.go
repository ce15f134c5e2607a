package server

// EventPayload is the JSONB body of an audit event row.
type EventPayload struct {
	RoomCode string `json:"room_code,omitempty"`
	GameID   string `json:"game_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Category string `json:"category,omitempty"`
	Position int    `json:"position,omitempty"`
	Count    int    `json:"count,omitempty"`
}
