package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type illustrationsRequest struct {
	Manual bool `json:"manual"`
}

func (s *Server) handleGetStory(c *gin.Context) {
	gameID := c.Param("id")
	story, ok := s.store.GetStory(gameID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "story not found"})
		return
	}
	c.JSON(http.StatusOK, storySnapshot(story))
}

// handleGenerateIllustrations drives the illustration requester. The default
// call is the automatic trigger fired when a client first sees a story
// without images; manual=true marks a user-initiated retry, which is subject
// to the cooldown instead of the attempted-flag check.
func (s *Server) handleGenerateIllustrations(c *gin.Context) {
	gameID := c.Param("id")
	var req illustrationsRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req, nil, "invalid request") {
			return
		}
	}

	result, err := s.generateStoryImages(c.Request.Context(), gameID, bearerToken(c), req.Manual)
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			status := http.StatusBadGateway
			if genErr.Category == generationErrAuth {
				status = http.StatusUnauthorized
			}
			c.JSON(status, gin.H{
				"error":    genErr.Message,
				"category": genErr.Category,
			})
			return
		}
		writeStoreError(c, err, "failed to generate illustrations")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"image_urls":        result.ImageURLs,
		"retry_attempt":     result.RetryAttempt,
		"already_generated": result.AlreadyGenerated,
	})
}

// handleStoryHistory lists the caller's finished stories, newest first.
func (s *Server) handleStoryHistory(c *gin.Context) {
	stories := s.store.StoriesForUser(currentUserID(c))
	out := make([]map[string]any, 0, len(stories))
	for _, story := range stories {
		out = append(out, storySnapshot(story))
	}
	c.JSON(http.StatusOK, gin.H{"stories": out})
}
