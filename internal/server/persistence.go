package server

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"word-party/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// The database mirrors the in-memory store. Every helper no-ops on a nil
// connection so the server (and its tests) run without Postgres attached.

func (s *Server) persistUser(user *User) error {
	if s.db == nil {
		return nil
	}
	record := db.User{ID: user.ID, Username: user.Username}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
}

func (s *Server) persistRoom(room *Room) error {
	if s.db == nil {
		return nil
	}
	record := db.Room{
		ID:        room.ID,
		RoomCode:  room.Code,
		HostID:    room.HostID,
		Active:    room.Active,
		CreatedAt: room.CreatedAt,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	return s.persistRoomParticipant(room.ID, room.HostID)
}

func (s *Server) persistRoomParticipant(roomID, userID string) error {
	if s.db == nil {
		return nil
	}
	record := db.RoomParticipant{
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) deleteRoomParticipant(roomID, userID string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&db.RoomParticipant{}).Error
}

func (s *Server) persistGame(game *Game) error {
	if s.db == nil {
		return nil
	}
	record := db.Game{
		ID:         game.ID,
		RoomID:     game.RoomID,
		TemplateID: game.Template.ID,
		Status:     game.Status,
		CreatedAt:  game.CreatedAt,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	for _, participant := range game.Participants {
		row := db.GameParticipant{
			GameID:  game.ID,
			UserID:  participant.UserID,
			IsReady: participant.IsReady,
		}
		if err := s.db.Create(&row).Error; err != nil && !isUniqueViolation(err) {
			return err
		}
	}
	return nil
}

func (s *Server) persistParticipantReady(gameID, userID string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Model(&db.GameParticipant{}).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Update("is_ready", true).Error
}

func (s *Server) deleteGameParticipant(gameID, userID string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Where("game_id = ? AND user_id = ?", gameID, userID).
		Delete(&db.GameParticipant{}).Error
}

// persistGameStart records the waiting→playing transition along with each
// participant's immutable position allocation.
func (s *Server) persistGameStart(game *Game) error {
	if s.db == nil {
		return nil
	}
	updates := map[string]any{
		"status":     game.Status,
		"started_at": game.StartedAt,
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.ID).Updates(updates).Error; err != nil {
		return err
	}
	for _, participant := range game.Participants {
		raw, err := json.Marshal(participant.WordsAssigned)
		if err != nil {
			return err
		}
		err = s.db.Model(&db.GameParticipant{}).
			Where("game_id = ? AND user_id = ?", game.ID, participant.UserID).
			Updates(map[string]any{
				"is_ready":       participant.IsReady,
				"words_assigned": datatypes.JSON(raw),
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) persistGameStatus(game *Game) error {
	if s.db == nil {
		return nil
	}
	return s.db.Model(&db.Game{}).Where("id = ?", game.ID).
		Update("status", game.Status).Error
}

// deleteGame removes the game's participants and then the game row, matching
// the cancel semantics: no orphaned participants either way.
func (s *Server) deleteGame(gameID string) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Where("game_id = ?", gameID).Delete(&db.GameParticipant{}).Error; err != nil {
		return err
	}
	return s.db.Where("id = ?", gameID).Delete(&db.Game{}).Error
}

func (s *Server) persistSubmission(gameID, userID string, position int, word string, wordBankID uint, auto bool) error {
	if s.db == nil {
		return nil
	}
	record := db.WordSubmission{
		GameID:        gameID,
		Position:      position,
		UserID:        userID,
		Word:          word,
		AutoSubmitted: auto,
	}
	if wordBankID != 0 {
		record.WordBankID = &wordBankID
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) persistStory(story *Story) error {
	if s.db == nil {
		return nil
	}
	record := db.CompletedStory{
		GameID:    story.GameID,
		StoryText: story.Text,
		CreatedAt: story.CreatedAt,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	return nil
}

func (s *Server) persistStoryImages(story *Story) error {
	if s.db == nil {
		return nil
	}
	raw, err := json.Marshal(story.ImageURLs)
	if err != nil {
		return err
	}
	return s.db.Model(&db.CompletedStory{}).
		Where("game_id = ?", story.GameID).
		Updates(map[string]any{
			"images_generated": story.ImagesGenerated,
			"image_urls":       datatypes.JSON(raw),
		}).Error
}

func (s *Server) persistEvent(roomID, gameID, eventType string, payload EventPayload) {
	if s.db == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	event := db.Event{
		Type:    eventType,
		Payload: datatypes.JSON(data),
	}
	if roomID != "" {
		event.RoomID = &roomID
	}
	if gameID != "" {
		event.GameID = &gameID
	}
	if payload.UserID != "" {
		userID := payload.UserID
		event.UserID = &userID
	}
	if err := s.db.Create(&event).Error; err != nil {
		log.Printf("persist event failed type=%s error=%v", eventType, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
