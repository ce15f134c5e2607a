package db

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Username  string    `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Room struct {
	ID           string    `gorm:"primaryKey;size:36"`
	RoomCode     string    `gorm:"size:8;uniqueIndex;not null"`
	HostID       string    `gorm:"size:36;index;not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Participants []RoomParticipant
	Games        []Game
}

type RoomParticipant struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"size:36;index;not null;uniqueIndex:idx_room_participants_room_user"`
	UserID    string    `gorm:"size:36;index;not null;uniqueIndex:idx_room_participants_room_user"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type StoryTemplate struct {
	ID           uint           `gorm:"primaryKey"`
	Category     string         `gorm:"size:32;index;not null"`
	Title        string         `gorm:"size:128;not null"`
	TemplateText string         `gorm:"type:text;not null"`
	Placeholders datatypes.JSON `gorm:"type:jsonb;not null"`
	Active       bool           `gorm:"not null;default:true"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}

type Game struct {
	ID           string     `gorm:"primaryKey;size:36"`
	RoomID       string     `gorm:"size:36;index;not null"`
	TemplateID   uint       `gorm:"index;not null"`
	Status       string     `gorm:"size:16;not null"`
	CreatedAt    time.Time  `gorm:"not null"`
	StartedAt    *time.Time `gorm:""`
	UpdatedAt    time.Time  `gorm:"not null"`
	Participants []GameParticipant
	Submissions  []WordSubmission
}

type GameParticipant struct {
	ID            uint           `gorm:"primaryKey"`
	GameID        string         `gorm:"size:36;index;not null;uniqueIndex:idx_game_participants_game_user"`
	UserID        string         `gorm:"size:36;index;not null;uniqueIndex:idx_game_participants_game_user"`
	IsReady       bool           `gorm:"not null;default:false"`
	WordsAssigned datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

type WordSubmission struct {
	ID            uint      `gorm:"primaryKey"`
	GameID        string    `gorm:"size:36;index;not null;uniqueIndex:idx_word_submissions_game_position"`
	Position      int       `gorm:"not null;uniqueIndex:idx_word_submissions_game_position"`
	UserID        string    `gorm:"size:36;index;not null"`
	Word          string    `gorm:"size:64;not null"`
	WordBankID    *uint     `gorm:"index"`
	AutoSubmitted bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`
}

type WordBankEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Word      string    `gorm:"size:64;not null;uniqueIndex:idx_word_bank_word_type"`
	Type      string    `gorm:"size:32;not null;uniqueIndex:idx_word_bank_word_type;index"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
}

type CompletedStory struct {
	ID              uint           `gorm:"primaryKey"`
	GameID          string         `gorm:"size:36;uniqueIndex;not null"`
	StoryText       string         `gorm:"type:text;not null"`
	ImagesGenerated bool           `gorm:"not null;default:false"`
	ImageURLs       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    *string        `gorm:"size:36;index"`
	GameID    *string        `gorm:"size:36;index"`
	UserID    *string        `gorm:"size:36;index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
