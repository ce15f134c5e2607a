package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Generation error categories surfaced to the client after retries are
// exhausted.
const (
	generationErrAuth    = "authentication"
	generationErrTimeout = "timeout"
	generationErrServer  = "server"
	generationErrGeneric = "generic"
)

type GenerationError struct {
	Category string
	Status   int
	Message  string
}

func (e *GenerationError) Error() string {
	if e.Message == "" {
		return "image generation failed (" + e.Category + ")"
	}
	return e.Message
}

type GenerationResult struct {
	ImageURLs        []string
	RetryAttempt     int
	AlreadyGenerated bool
}

type generationRequest struct {
	GameID    string `json:"gameId"`
	StoryText string `json:"storyText"`
}

type generationResponse struct {
	Success   bool     `json:"success"`
	ImagesB64 []string `json:"images_b64,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	Message   string   `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
}

var errGenerationInFlight = fmt.Errorf("%w: image generation already in progress", ErrConflict)

// generateStoryImages ensures exactly one illustration set is produced and
// attached to the completed story. Idempotency is checked before calling the
// external service and again before persisting; at most one generation is in
// flight per game. The in-flight request is canceled if the owning view is
// torn down (beginGeneration registers the cancel func for abortGeneration).
func (s *Server) generateStoryImages(ctx context.Context, gameID, bearer string, manual bool) (*GenerationResult, error) {
	story, ok := s.store.GetStory(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: story not found", ErrNotFound)
	}
	if story.ImagesGenerated {
		return &GenerationResult{ImageURLs: story.ImageURLs, AlreadyGenerated: true}, nil
	}

	if manual {
		cooldown := time.Duration(s.cfg.ManualRetryCooldownSeconds) * time.Second
		if remaining := s.guard.ManualRetryRemaining(ctx, gameID, cooldown); remaining > 0 {
			return nil, &CooldownError{Remaining: remaining}
		}
		s.guard.RecordManualRetry(ctx, gameID)
	} else if s.guard.AttemptStarted(ctx, gameID) {
		// A reload mid-generation must not spawn a second concurrent call.
		return nil, errGenerationInFlight
	}

	genCtx, err := s.beginGeneration(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer s.endGeneration(gameID)
	s.guard.MarkAttemptStarted(ctx, gameID)

	result, err := s.runGenerationAttempts(genCtx, gameID, story.Text, bearer)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Server) beginGeneration(ctx context.Context, gameID string) (context.Context, error) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, exists := s.inflight[gameID]; exists {
		return nil, errGenerationInFlight
	}
	genCtx, cancel := context.WithCancel(ctx)
	s.inflight[gameID] = cancel
	return genCtx, nil
}

func (s *Server) endGeneration(gameID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if cancel, ok := s.inflight[gameID]; ok {
		cancel()
		delete(s.inflight, gameID)
	}
}

// abortGeneration cancels an in-flight generation request, if any. Called
// when the last client watching the game disconnects.
func (s *Server) abortGeneration(gameID string) {
	s.inflightMu.Lock()
	cancel, ok := s.inflight[gameID]
	s.inflightMu.Unlock()
	if ok {
		log.Printf("generation aborted game_id=%s reason=view_teardown", gameID)
		cancel()
	}
}

func (s *Server) runGenerationAttempts(ctx context.Context, gameID, storyText, bearer string) (*GenerationResult, error) {
	maxAttempts := s.cfg.GenerationMaxAttempts
	backoffBase := time.Duration(s.cfg.GenerationBackoffMillis) * time.Millisecond

	var lastErr *GenerationError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			// Exponential backoff: 2s, then 4s with the default base.
			wait := backoffBase << (attempt - 2)
			select {
			case <-ctx.Done():
				return nil, &GenerationError{Category: generationErrGeneric, Message: "generation canceled"}
			case <-time.After(wait):
			}
		}

		response, genErr := s.callGenerationService(ctx, gameID, storyText, bearer)
		if genErr != nil {
			lastErr = genErr
			log.Printf("generation attempt failed game_id=%s attempt=%d category=%s error=%s", gameID, attempt, genErr.Category, genErr.Message)
			if genErr.Category == generationErrAuth {
				// Not transient; retrying cannot help.
				return nil, genErr
			}
			if ctx.Err() != nil {
				return nil, genErr
			}
			continue
		}

		urls, persistErr := s.persistGeneratedImages(gameID, response)
		if persistErr != nil {
			return nil, &GenerationError{Category: generationErrGeneric, Message: persistErr.Error()}
		}
		log.Printf("generation succeeded game_id=%s attempt=%d images=%d", gameID, attempt, len(urls))
		return &GenerationResult{ImageURLs: urls, RetryAttempt: attempt}, nil
	}
	if lastErr == nil {
		lastErr = &GenerationError{Category: generationErrGeneric, Message: "image generation failed"}
	}
	return nil, lastErr
}

// callGenerationService performs one bounded attempt against the external
// image generation service.
func (s *Server) callGenerationService(ctx context.Context, gameID, storyText, bearer string) (*generationResponse, *GenerationError) {
	timeout := time.Duration(s.cfg.GenerationTimeoutSeconds) * time.Second
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(generationRequest{GameID: gameID, StoryText: storyText})
	if err != nil {
		return nil, &GenerationError{Category: generationErrGeneric, Message: "failed to build generation request"}
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.cfg.GenerationURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &GenerationError{Category: generationErrGeneric, Message: "failed to build generation request"}
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return nil, &GenerationError{Category: generationErrTimeout, Message: "image generation timed out"}
		}
		return nil, &GenerationError{Category: generationErrGeneric, Message: "failed to reach image generation service"}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenerationError{Category: generationErrGeneric, Message: "failed to read generation response"}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &GenerationError{Category: generationErrAuth, Status: resp.StatusCode, Message: "image generation authentication failed"}
	}
	if resp.StatusCode >= 500 {
		return nil, &GenerationError{Category: generationErrServer, Status: resp.StatusCode, Message: fmt.Sprintf("image generation service error (%d)", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GenerationError{Category: generationErrGeneric, Status: resp.StatusCode, Message: fmt.Sprintf("image generation failed (%d)", resp.StatusCode)}
	}

	var parsed generationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &GenerationError{Category: generationErrGeneric, Message: "failed to parse generation response"}
	}
	if parsed.Error != "" {
		return nil, &GenerationError{Category: generationErrGeneric, Message: parsed.Error}
	}
	if len(parsed.ImagesB64) == 0 && parsed.ImageURL == "" {
		return nil, &GenerationError{Category: generationErrGeneric, Message: "generation service returned no images"}
	}
	return &parsed, nil
}

// persistGeneratedImages writes returned images to the object store and flips
// images_generated under the idempotency guard. If a concurrent caller won
// the race, its result is returned and nothing is overwritten.
func (s *Server) persistGeneratedImages(gameID string, response *generationResponse) ([]string, error) {
	if story, ok := s.store.GetStory(gameID); ok && story.ImagesGenerated {
		return story.ImageURLs, nil
	}

	var urls []string
	if len(response.ImagesB64) > 0 {
		for i, encoded := range response.ImagesB64 {
			data, err := decodeImageData(encoded)
			if err != nil {
				return nil, err
			}
			name := storyImageName(gameID, i, len(response.ImagesB64))
			// Existence in the object store is the secondary safeguard
			// against a duplicate trigger that slipped past the flag check.
			if s.images.Exists(name) {
				urls = append(urls, s.images.URL(name))
				continue
			}
			url, err := s.images.Save(name, data)
			if err != nil {
				return nil, err
			}
			urls = append(urls, url)
		}
	} else if response.ImageURL != "" {
		urls = []string{response.ImageURL}
	}

	story, err := s.store.UpdateStory(gameID, func(story *Story) error {
		if story.ImagesGenerated {
			urls = story.ImageURLs
			return nil
		}
		story.ImageURLs = urls
		story.ImagesGenerated = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.persistStoryImages(story); err != nil {
		log.Printf("persist story images failed game_id=%s error=%v", gameID, err)
	}
	s.persistEvent("", gameID, "images_generated", EventPayload{GameID: gameID, Count: len(urls)})
	s.broadcastGameUpdate(gameID)
	return urls, nil
}
