package server

import (
	"testing"
	"time"
)

func TestGameStillPending(t *testing.T) {
	srv := newGameServer(t)
	_, _, game, _ := setupWaitingGame(t, srv, "Ben")

	if !srv.gameStillPending(game.ID) {
		t.Fatal("expected waiting game to be pending")
	}

	srv.store.UpdateGame(game.ID, func(game *Game) error {
		game.Status = statusPlaying
		return nil
	})
	if !srv.gameStillPending(game.ID) {
		t.Fatal("expected playing game to be pending")
	}

	srv.store.UpdateGame(game.ID, func(game *Game) error {
		game.Status = statusFinished
		return nil
	})
	if !srv.gameStillPending(game.ID) {
		t.Fatal("expected finished game without story to be pending")
	}

	srv.store.CreateStory(game.ID, "text")
	if !srv.gameStillPending(game.ID) {
		t.Fatal("expected finished game without images to be pending")
	}

	srv.store.UpdateStory(game.ID, func(story *Story) error {
		story.ImagesGenerated = true
		return nil
	})
	if srv.gameStillPending(game.ID) {
		t.Fatal("expected illustrated game to be settled")
	}

	if srv.gameStillPending("missing") {
		t.Fatal("expected unknown game to be settled")
	}
}

func TestWatchIntervalPerStatus(t *testing.T) {
	srv := newGameServer(t)
	_, _, game, _ := setupWaitingGame(t, srv, "Ben")

	want := time.Duration(srv.cfg.GameWatchIntervalSeconds) * time.Second
	if got := srv.watchInterval(game.ID); got != want {
		t.Fatalf("expected game interval %v, got %v", want, got)
	}

	srv.store.UpdateGame(game.ID, func(game *Game) error {
		game.Status = statusFinished
		return nil
	})
	want = time.Duration(srv.cfg.StoryWatchIntervalSeconds) * time.Second
	if got := srv.watchInterval(game.ID); got != want {
		t.Fatalf("expected story interval %v, got %v", want, got)
	}
}

func TestEnsureGameWatcherIdempotentAndStoppable(t *testing.T) {
	srv := newGameServer(t)
	_, _, game, _ := setupWaitingGame(t, srv, "Ben")

	srv.ensureGameWatcher(game.ID)
	srv.ensureGameWatcher(game.ID)

	srv.watchersMu.Lock()
	count := len(srv.watchers)
	srv.watchersMu.Unlock()
	if count != 1 {
		t.Fatalf("expected one watcher, got %d", count)
	}

	// stopGameWatcher blocks until the goroutine exits; a second stop for the
	// same game is a no-op.
	srv.stopGameWatcher(game.ID)
	srv.stopGameWatcher(game.ID)

	srv.watchersMu.Lock()
	count = len(srv.watchers)
	srv.watchersMu.Unlock()
	if count != 0 {
		t.Fatalf("expected no watchers, got %d", count)
	}
}
