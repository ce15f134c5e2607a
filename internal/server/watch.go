package server

import (
	"bytes"
	"encoding/json"
	"log"
	"time"
)

type watcher struct {
	stop chan struct{}
	done chan struct{}
}

// ensureGameWatcher starts the polling fallback for a game if it is not
// already running. The watcher re-reads server state on a fixed interval
// while a wait condition holds (game still waiting or playing, or story
// images still pending) and broadcasts through the same snapshot routine as
// the push path, so either channel may win.
func (s *Server) ensureGameWatcher(gameID string) {
	s.watchersMu.Lock()
	defer s.watchersMu.Unlock()
	if _, running := s.watchers[gameID]; running {
		return
	}
	w := &watcher{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.watchers[gameID] = w
	go s.watchGame(gameID, w)
}

func (s *Server) stopGameWatcher(gameID string) {
	s.watchersMu.Lock()
	w, ok := s.watchers[gameID]
	if ok {
		delete(s.watchers, gameID)
	}
	s.watchersMu.Unlock()
	if ok {
		close(w.stop)
		<-w.done
	}
}

func (s *Server) watchGame(gameID string, w *watcher) {
	defer close(w.done)
	defer func() {
		s.watchersMu.Lock()
		if s.watchers[gameID] == w {
			delete(s.watchers, gameID)
		}
		s.watchersMu.Unlock()
	}()

	var last []byte
	timer := time.NewTimer(s.watchInterval(gameID))
	defer timer.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-timer.C:
		}

		snapshot := s.gameSnapshot(gameID)
		if snapshot == nil {
			return
		}
		encoded, err := json.Marshal(snapshot)
		if err == nil && !bytes.Equal(encoded, last) {
			last = encoded
			s.ws.Broadcast(topicGame+gameID, snapshot)
		}

		if !s.gameStillPending(gameID) {
			log.Printf("watcher done game_id=%s", gameID)
			return
		}
		timer.Reset(s.watchInterval(gameID))
	}
}

// gameStillPending reports whether any client-visible wait condition holds.
func (s *Server) gameStillPending(gameID string) bool {
	game, ok := s.store.GetGame(gameID)
	if !ok {
		return false
	}
	switch game.Status {
	case statusWaiting, statusPlaying:
		return true
	case statusFinished:
		story, ok := s.store.GetStory(gameID)
		return !ok || !story.ImagesGenerated
	default:
		return false
	}
}

// watchInterval picks the poll period: game-state waits poll faster than the
// image-generation wait.
func (s *Server) watchInterval(gameID string) time.Duration {
	if game, ok := s.store.GetGame(gameID); ok && game.Status == statusFinished {
		return time.Duration(s.cfg.StoryWatchIntervalSeconds) * time.Second
	}
	return time.Duration(s.cfg.GameWatchIntervalSeconds) * time.Second
}
