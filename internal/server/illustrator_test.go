package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeGenerationBackend scripts the external image service: it serves the
// configured status codes in order, then succeeds with one base64 image.
type fakeGenerationBackend struct {
	calls    atomic.Int32
	failures []int
}

func (f *fakeGenerationBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		call := int(f.calls.Add(1))
		if call <= len(f.failures) {
			w.WriteHeader(f.failures[call-1])
			return
		}
		_ = json.NewEncoder(w).Encode(generationResponse{
			Success:   true,
			ImagesB64: []string{base64.StdEncoding.EncodeToString([]byte("png"))},
		})
	}
}

func newIllustratorServer(t *testing.T, backendURL string) *Server {
	t.Helper()
	cfg := testConfig(t)
	cfg.GenerationURL = backendURL
	cfg.GenerationTimeoutSeconds = 1
	cfg.GenerationBackoffMillis = 1
	srv := New(nil, nil, cfg)
	t.Cleanup(srv.Close)
	srv.store.CreateStory("g1", "a finished story")
	return srv
}

func TestGenerationSucceedsFirstAttempt(t *testing.T) {
	backend := &fakeGenerationBackend{}
	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)
	srv := newIllustratorServer(t, ts.URL)

	result, err := srv.generateStoryImages(context.Background(), "g1", "", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.RetryAttempt != 1 || result.AlreadyGenerated {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.ImageURLs) != 1 {
		t.Fatalf("expected one image url, got %v", result.ImageURLs)
	}

	story, _ := srv.store.GetStory("g1")
	if !story.ImagesGenerated {
		t.Fatal("expected images_generated flag set")
	}
	if !srv.images.Exists(storyImageName("g1", 0, 1)) {
		t.Fatal("expected image written to the object store")
	}
}

func TestGenerationRetriesTransientFailures(t *testing.T) {
	backend := &fakeGenerationBackend{failures: []int{500, 503}}
	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)
	srv := newIllustratorServer(t, ts.URL)

	result, err := srv.generateStoryImages(context.Background(), "g1", "", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.RetryAttempt != 3 {
		t.Fatalf("expected success on attempt 3, got %d", result.RetryAttempt)
	}
	if got := backend.calls.Load(); got != 3 {
		t.Fatalf("expected 3 backend calls, got %d", got)
	}
}

func TestGenerationStopsAfterMaxAttempts(t *testing.T) {
	backend := &fakeGenerationBackend{failures: []int{500, 500, 500, 500}}
	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)
	srv := newIllustratorServer(t, ts.URL)

	_, err := srv.generateStoryImages(context.Background(), "g1", "", false)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Category != generationErrServer {
		t.Fatalf("expected server category, got %q", genErr.Category)
	}
	if got := backend.calls.Load(); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
	story, _ := srv.store.GetStory("g1")
	if story.ImagesGenerated {
		t.Fatal("expected flag unset after failure")
	}
}

func TestGenerationAuthErrorNotRetried(t *testing.T) {
	backend := &fakeGenerationBackend{failures: []int{401, 401, 401}}
	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)
	srv := newIllustratorServer(t, ts.URL)

	_, err := srv.generateStoryImages(context.Background(), "g1", "", false)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Category != generationErrAuth {
		t.Fatalf("expected authentication category, got %q", genErr.Category)
	}
	if got := backend.calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt for an auth error, got %d", got)
	}
}

func TestGenerationAlreadyGeneratedShortCircuits(t *testing.T) {
	backend := &fakeGenerationBackend{}
	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)
	srv := newIllustratorServer(t, ts.URL)

	srv.store.UpdateStory("g1", func(story *Story) error {
		story.ImagesGenerated = true
		story.ImageURLs = []string{"http://example.test/existing.png"}
		return nil
	})

	result, err := srv.generateStoryImages(context.Background(), "g1", "", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !result.AlreadyGenerated {
		t.Fatal("expected already-generated result")
	}
	if len(result.ImageURLs) != 1 || result.ImageURLs[0] != "http://example.test/existing.png" {
		t.Fatalf("expected existing urls, got %v", result.ImageURLs)
	}
	if backend.calls.Load() != 0 {
		t.Fatal("expected no backend call for a generated story")
	}
}

func TestGenerationAttemptGuardBlocksSecondAutoTrigger(t *testing.T) {
	backend := &fakeGenerationBackend{failures: []int{500, 500, 500}}
	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)
	srv := newIllustratorServer(t, ts.URL)

	if _, err := srv.generateStoryImages(context.Background(), "g1", "", false); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	// The attempted flag survives the failed run, so an auto trigger from a
	// reloaded client is refused.
	_, err := srv.generateStoryImages(context.Background(), "g1", "", false)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := backend.calls.Load(); got != 3 {
		t.Fatalf("expected no extra backend calls, got %d", got)
	}
}

func TestGenerationManualRetryCooldown(t *testing.T) {
	backend := &fakeGenerationBackend{failures: []int{500, 500, 500, 500}}
	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)
	srv := newIllustratorServer(t, ts.URL)

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := base
	srv.guard.now = func() time.Time { return clock }

	if _, err := srv.generateStoryImages(context.Background(), "g1", "", true); err == nil {
		t.Fatal("expected backend failure")
	}

	clock = base.Add(10 * time.Second)
	_, err := srv.generateStoryImages(context.Background(), "g1", "", true)
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("expected CooldownError, got %v", err)
	}
	if cooldown.RemainingSeconds() != 20 {
		t.Fatalf("expected 20 seconds remaining, got %d", cooldown.RemainingSeconds())
	}

	clock = base.Add(31 * time.Second)
	if _, err := srv.generateStoryImages(context.Background(), "g1", "", true); errors.As(err, &cooldown) {
		t.Fatalf("expected cooldown to have expired, got %v", err)
	}
}

func TestGenerationSingleFlightPerGame(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(generationResponse{
			Success:   true,
			ImagesB64: []string{base64.StdEncoding.EncodeToString([]byte("png"))},
		})
	}))
	t.Cleanup(ts.Close)
	srv := newIllustratorServer(t, ts.URL)

	done := make(chan error, 1)
	go func() {
		_, err := srv.generateStoryImages(context.Background(), "g1", "", false)
		done <- err
	}()

	// Wait for the first call to reach the backend, then race a second one.
	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("backend never called")
		case <-time.After(5 * time.Millisecond):
		}
	}
	_, err := srv.generateStoryImages(context.Background(), "g1", "", false)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for concurrent trigger, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first generation failed: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one backend call, got %d", got)
	}
}
