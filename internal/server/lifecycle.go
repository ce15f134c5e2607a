package server

import (
	"fmt"
	"log"
	"math/rand"
	"time"
)

// The game runs a ready check: participants are copied from the room unready
// with empty allocations, and the game flips to playing (allocating word
// positions at that moment) once every remaining participant's ready flag is
// true. The host counts as ready from creation.

// startGame draws a template uniformly at random from active templates in the
// chosen category and opens the ready check. Host only.
func (s *Server) startGame(roomID, hostID, category string) (*Game, error) {
	room, ok := s.store.GetRoom(roomID)
	if !ok {
		return nil, ErrNotFound
	}
	if room.HostID != hostID {
		return nil, fmt.Errorf("%w: only the host can start a game", ErrForbidden)
	}
	templates := s.store.TemplatesByCategory(category)
	if len(templates) == 0 {
		return nil, fmt.Errorf("%w: no templates found for this category", ErrNotFound)
	}
	tmpl := templates[rand.Intn(len(templates))]

	game, err := s.store.CreateGame(roomID, tmpl)
	if err != nil {
		if err == ErrConflict {
			return nil, fmt.Errorf("%w: room already has a game in progress", ErrConflict)
		}
		return nil, err
	}
	if err := s.persistGame(game); err != nil {
		log.Printf("persist game failed game_id=%s error=%v", game.ID, err)
	}
	s.persistEvent(game.RoomID, game.ID, "game_created", EventPayload{
		GameID:   game.ID,
		Category: category,
	})
	log.Printf("game created game_id=%s room_id=%s template_id=%d", game.ID, roomID, tmpl.ID)

	// Single-participant room: the host alone satisfies the ready quorum.
	s.checkReadyQuorum(game.ID)
	s.broadcastRoomUpdate(room.ID)
	s.broadcastGameUpdate(game.ID)
	return game, nil
}

// markReady sets the participant's ready flag. Idempotent: repeated calls
// after the first have no additional effect.
func (s *Server) markReady(gameID, userID string) error {
	_, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Status != statusWaiting {
			return fmt.Errorf("%w: ready check is over", ErrConflict)
		}
		for i := range game.Participants {
			if game.Participants[i].UserID == userID {
				game.Participants[i].IsReady = true
				return nil
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return err
	}
	if err := s.persistParticipantReady(gameID, userID); err != nil {
		log.Printf("persist ready failed game_id=%s user_id=%s error=%v", gameID, userID, err)
	}
	s.persistEvent("", gameID, "participant_ready", EventPayload{GameID: gameID, UserID: userID})
	s.checkReadyQuorum(gameID)
	s.broadcastGameUpdate(gameID)
	return nil
}

// decline removes a participant from the game. It does not change game status
// itself, but removing the last unready participant can satisfy the quorum.
func (s *Server) decline(gameID, userID string) error {
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Status != statusWaiting {
			return fmt.Errorf("%w: game already started", ErrConflict)
		}
		return removeParticipant(game, userID)
	})
	if err != nil {
		return err
	}
	if err := s.deleteGameParticipant(gameID, userID); err != nil {
		log.Printf("delete participant failed game_id=%s user_id=%s error=%v", gameID, userID, err)
	}
	s.persistEvent("", gameID, "participant_declined", EventPayload{GameID: gameID, UserID: userID})
	log.Printf("participant declined game_id=%s user_id=%s remaining=%d", gameID, userID, len(game.Participants))
	s.checkReadyQuorum(gameID)
	s.broadcastGameUpdate(gameID)
	return nil
}

// forceStart evicts every unready participant, which satisfies the quorum for
// the remaining ready players. Host only, and only once the client-visible
// countdown has elapsed.
func (s *Server) forceStart(gameID, hostID string) error {
	countdown := time.Duration(s.cfg.ForceStartCountdownSeconds) * time.Second
	var evicted []string
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Status != statusWaiting {
			return fmt.Errorf("%w: game already started", ErrConflict)
		}
		room, ok := s.store.rooms[game.RoomID]
		if !ok || room.HostID != hostID {
			return fmt.Errorf("%w: only the host can force start", ErrForbidden)
		}
		if s.now().Sub(game.CreatedAt) < countdown {
			return fmt.Errorf("%w: force start is not available yet", ErrConflict)
		}
		kept := game.Participants[:0]
		for _, participant := range game.Participants {
			if participant.IsReady {
				kept = append(kept, participant)
			} else {
				evicted = append(evicted, participant.UserID)
			}
		}
		game.Participants = kept
		return nil
	})
	if err != nil {
		return err
	}
	for _, userID := range evicted {
		if err := s.deleteGameParticipant(gameID, userID); err != nil {
			log.Printf("delete participant failed game_id=%s user_id=%s error=%v", gameID, userID, err)
			return err
		}
	}
	s.persistEvent("", gameID, "force_start", EventPayload{GameID: gameID, Count: len(evicted)})
	log.Printf("force start game_id=%s host_id=%s evicted=%d remaining=%d", gameID, hostID, len(evicted), len(game.Participants))
	s.checkReadyQuorum(gameID)
	s.broadcastGameUpdate(gameID)
	return nil
}

// cancelGame deletes all game participants and then the game itself. Legal
// only while the game is waiting; a playing or finished game is left
// untouched.
func (s *Server) cancelGame(gameID, hostID string) (string, error) {
	var roomID string
	_, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Status != statusWaiting {
			return fmt.Errorf("%w: only a waiting game can be canceled", ErrConflict)
		}
		room, ok := s.store.rooms[game.RoomID]
		if !ok || room.HostID != hostID {
			return fmt.Errorf("%w: only the host can cancel the game", ErrForbidden)
		}
		roomID = game.RoomID
		game.Status = statusCanceled
		return nil
	})
	if err != nil {
		return "", err
	}
	if err := s.deleteGame(gameID); err != nil {
		log.Printf("delete game failed game_id=%s error=%v", gameID, err)
	}
	s.store.DeleteGame(gameID)
	s.persistEvent(roomID, gameID, "game_canceled", EventPayload{GameID: gameID})
	log.Printf("game canceled game_id=%s host_id=%s", gameID, hostID)

	room, ok := s.store.GetRoom(roomID)
	code := ""
	if ok {
		code = room.Code
	}
	s.ws.Broadcast(topicGame+gameID, map[string]any{
		"type":      "game_canceled",
		"game_id":   gameID,
		"room_code": code,
	})
	s.broadcastRoomUpdate(roomID)
	return code, nil
}

// checkReadyQuorum is the storage-trigger equivalent: whenever the participant
// set changes, transition to playing if every remaining participant is ready.
// Word positions are allocated at this moment and never reassigned.
func (s *Server) checkReadyQuorum(gameID string) {
	started := false
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Status != statusWaiting || len(game.Participants) == 0 {
			return nil
		}
		for _, participant := range game.Participants {
			if !participant.IsReady {
				return nil
			}
		}
		allocations := assignWordPositions(len(game.Template.Placeholders), len(game.Participants))
		for i := range game.Participants {
			game.Participants[i].WordsAssigned = allocations[i]
		}
		now := s.now()
		game.Status = statusPlaying
		game.StartedAt = &now
		started = true
		return nil
	})
	if err != nil || !started {
		return
	}
	if err := s.persistGameStart(game); err != nil {
		log.Printf("persist game start failed game_id=%s error=%v", game.ID, err)
	}
	s.persistEvent(game.RoomID, game.ID, "game_started", EventPayload{
		GameID: game.ID,
		Count:  len(game.Participants),
	})
	log.Printf("game started game_id=%s players=%d positions=%d", game.ID, len(game.Participants), len(game.Template.Placeholders))
	s.ensureGameWatcher(game.ID)
	s.broadcastGameUpdate(game.ID)
}

// submitWord records a word for one of the caller's assigned positions while
// the game is playing, then runs the assembly trigger.
func (s *Server) submitWord(gameID, userID string, position int, word string, wordBankID uint, auto bool) error {
	_, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Status != statusPlaying {
			return fmt.Errorf("%w: game is not accepting words", ErrConflict)
		}
		participant := findParticipant(game, userID)
		if participant == nil {
			return ErrNotFound
		}
		if !containsPosition(participant.WordsAssigned, position) {
			return fmt.Errorf("%w: position %d is not assigned to you", ErrForbidden, position)
		}
		if _, exists := game.Submissions[position]; exists {
			return fmt.Errorf("%w: position %d already has a word", ErrConflict, position)
		}
		game.Submissions[position] = Submission{
			UserID:        userID,
			Word:          word,
			WordBankID:    wordBankID,
			AutoSubmitted: auto,
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.persistSubmission(gameID, userID, position, word, wordBankID, auto); err != nil {
		log.Printf("persist submission failed game_id=%s position=%d error=%v", gameID, position, err)
	}
	s.persistEvent("", gameID, "word_submitted", EventPayload{
		GameID:   gameID,
		UserID:   userID,
		Position: position,
	})
	s.checkStoryComplete(gameID)
	s.broadcastGameUpdate(gameID)
	return nil
}

// handleHostDeparture notifies a room's participants when the host leaves
// while a game is waiting or playing, so clients can offer a path back to the
// lobby. A deletion event, not a state transition.
func (s *Server) handleHostDeparture(room *Room) {
	payload := map[string]any{
		"type":      "host_left",
		"room_code": room.Code,
	}
	s.ws.Broadcast(topicRoom+room.ID, payload)
	if room.CurrentGameID != "" {
		if game, ok := s.store.GetGame(room.CurrentGameID); ok {
			if game.Status == statusWaiting || game.Status == statusPlaying {
				s.ws.Broadcast(topicGame+game.ID, payload)
			}
		}
	}
	s.persistEvent(room.ID, room.CurrentGameID, "host_left", EventPayload{RoomCode: room.Code})
	log.Printf("host left room_id=%s room_code=%s", room.ID, room.Code)
}

func findParticipant(game *Game, userID string) *GameParticipant {
	for i := range game.Participants {
		if game.Participants[i].UserID == userID {
			return &game.Participants[i]
		}
	}
	return nil
}

func removeParticipant(game *Game, userID string) error {
	for i, participant := range game.Participants {
		if participant.UserID == userID {
			game.Participants = append(game.Participants[:i], game.Participants[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func containsPosition(positions []int, position int) bool {
	for _, p := range positions {
		if p == position {
			return true
		}
	}
	return false
}
