package server

import (
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"
)

type startGameRequest struct {
	Category string `json:"category" binding:"required,category"`
}

type submitWordRequest struct {
	Position   *int   `json:"position" binding:"required"`
	Word       string `json:"word"`
	WordBankID uint   `json:"word_bank_id"`
}

func (s *Server) handleStartGame(c *gin.Context) {
	if !s.enforceRateLimit(c, "start-game") {
		return
	}
	code := c.Param("code")
	room, ok := s.store.FindRoomByCode(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	var req startGameRequest
	if !bindJSON(c, &req, bindMessages{
		"Category": {"required": "category is required", "category": "category contains unsupported characters"},
	}, "invalid start request") {
		return
	}
	category, err := validateCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	game, err := s.startGame(room.ID, currentUserID(c), category)
	if err != nil {
		writeStoreError(c, err, "failed to start game")
		return
	}
	c.JSON(http.StatusCreated, s.gameSnapshot(game.ID))
}

func (s *Server) handleGetGame(c *gin.Context) {
	snapshot := s.gameSnapshot(c.Param("id"))
	if snapshot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleReady(c *gin.Context) {
	gameID := c.Param("id")
	if err := s.markReady(gameID, currentUserID(c)); err != nil {
		writeStoreError(c, err, "game not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

func (s *Server) handleDecline(c *gin.Context) {
	gameID := c.Param("id")
	if err := s.decline(gameID, currentUserID(c)); err != nil {
		writeStoreError(c, err, "game not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"declined": true})
}

func (s *Server) handleForceStart(c *gin.Context) {
	gameID := c.Param("id")
	if err := s.forceStart(gameID, currentUserID(c)); err != nil {
		writeStoreError(c, err, "game not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"forced": true})
}

func (s *Server) handleCancelGame(c *gin.Context) {
	gameID := c.Param("id")
	roomCode, err := s.cancelGame(gameID, currentUserID(c))
	if err != nil {
		writeStoreError(c, err, "game not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"canceled": true, "room_code": roomCode})
}

func (s *Server) handleSubmitWord(c *gin.Context) {
	gameID := c.Param("id")
	var req submitWordRequest
	if !bindJSON(c, &req, bindMessages{
		"Position": {"required": "position is required"},
	}, "invalid word submission") {
		return
	}

	word := req.Word
	if req.WordBankID != 0 {
		entry, ok := s.store.FindWordBankEntry(req.WordBankID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "word not found in word bank"})
			return
		}
		word = entry.Word
	} else {
		if !s.cfg.EnableCustomWords {
			c.JSON(http.StatusForbidden, gin.H{"error": "custom words are disabled; pick a suggestion"})
			return
		}
		clean, err := validateWord(word)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		word = clean
	}

	if err := s.submitWord(gameID, currentUserID(c), *req.Position, word, req.WordBankID, false); err != nil {
		writeStoreError(c, err, "game not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submitted": true, "position": *req.Position})
}

// handleWordSuggestions returns up to five random curated words matching the
// placeholder's word type.
func (s *Server) handleWordSuggestions(c *gin.Context) {
	gameID := c.Param("id")
	if _, ok := s.store.GetGame(gameID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	wordType, err := validateCategory(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "word type is required"})
		return
	}
	entries := s.store.WordBankByType(wordType)
	rand.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
	if len(entries) > 5 {
		entries = entries[:5]
	}
	suggestions := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		suggestions = append(suggestions, gin.H{"id": entry.ID, "word": entry.Word})
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "custom_words_enabled": s.cfg.EnableCustomWords})
}
