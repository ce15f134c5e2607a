package server

import "time"

const (
	statusWaiting  = "waiting"
	statusPlaying  = "playing"
	statusFinished = "finished"
	statusCanceled = "canceled"
)

const (
	topicRoom = "room:"
	topicGame = "game:"
)

type User struct {
	ID       string
	Username string
}

type Placeholder struct {
	Position int    `json:"position"`
	Type     string `json:"type"`
}

type Template struct {
	ID           uint
	Category     string
	Title        string
	Text         string
	Placeholders []Placeholder
	Active       bool
}

type RoomParticipant struct {
	UserID   string
	JoinedAt time.Time
}

type Room struct {
	ID            string
	Code          string
	HostID        string
	Active        bool
	CreatedAt     time.Time
	Participants  []RoomParticipant
	CurrentGameID string
}

type GameParticipant struct {
	UserID        string
	IsReady       bool
	WordsAssigned []int
}

type Submission struct {
	UserID        string
	Word          string
	WordBankID    uint
	AutoSubmitted bool
}

type Game struct {
	ID           string
	RoomID       string
	Template     Template
	Status       string
	CreatedAt    time.Time
	StartedAt    *time.Time
	Participants []GameParticipant
	Submissions  map[int]Submission
}

type Story struct {
	GameID          string
	Text            string
	ImagesGenerated bool
	ImageURLs       []string
	CreatedAt       time.Time
}

type WordBankEntry struct {
	ID     uint
	Word   string
	Type   string
	Active bool
}
