package server

import (
	"log"
	"strconv"
	"strings"
)

// checkStoryComplete is the submission-complete trigger: once every
// placeholder position has a word, substitute the words into the template,
// write the completed story and finish the game. Running it twice is
// harmless; the story row is created at most once.
func (s *Server) checkStoryComplete(gameID string) {
	finished := false
	var storyText string
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Status != statusPlaying {
			return nil
		}
		if len(game.Submissions) < len(game.Template.Placeholders) {
			return nil
		}
		storyText = assembleStoryText(game.Template, game.Submissions)
		game.Status = statusFinished
		finished = true
		return nil
	})
	if err != nil || !finished {
		return
	}

	story, created := s.store.CreateStory(game.ID, storyText)
	if !created {
		return
	}
	if err := s.persistStory(story); err != nil {
		log.Printf("persist story failed game_id=%s error=%v", game.ID, err)
	}
	if err := s.persistGameStatus(game); err != nil {
		log.Printf("persist game status failed game_id=%s error=%v", game.ID, err)
	}
	s.persistEvent(game.RoomID, game.ID, "story_assembled", EventPayload{GameID: game.ID})
	log.Printf("story assembled game_id=%s length=%d", game.ID, len(storyText))
	s.broadcastGameUpdate(game.ID)
}

// assembleStoryText replaces each {N} token in the template with the word
// submitted for position N.
func assembleStoryText(tmpl Template, submissions map[int]Submission) string {
	text := tmpl.Text
	for _, placeholder := range tmpl.Placeholders {
		submission, ok := submissions[placeholder.Position]
		if !ok {
			continue
		}
		token := "{" + strconv.Itoa(placeholder.Position) + "}"
		text = strings.ReplaceAll(text, token, submission.Word)
	}
	return text
}
