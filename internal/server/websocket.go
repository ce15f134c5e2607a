package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// wsHub fans state snapshots out to clients grouped by topic ("room:<id>" or
// "game:<id>"). It is the push half of the convergence layer; the watchers in
// watch.go are the polling half, and both feed the same snapshot builders.
type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) Add(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[topic]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[topic] = group
	}
	group[conn] = struct{}{}
}

// Remove drops the connection and reports whether the topic group is now
// empty, so the owner can tear down watchers tied to the view.
func (h *wsHub) Remove(topic string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[topic]
	if group == nil {
		return true
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, topic)
		return true
	}
	return false
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(topic string, payload any) {
	h.mu.Lock()
	group := h.groups[topic]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(topic, conn)
		}
	}
}

func (s *Server) handleRoomWebsocket(c *gin.Context) {
	code := c.Param("code")
	room, ok := s.store.FindRoomByCode(code)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	conn, err := upgradeWebsocket(c)
	if err != nil {
		return
	}
	topic := topicRoom + room.ID
	log.Printf("ws connected room_code=%s remote=%s", code, c.Request.RemoteAddr)
	s.ws.Add(topic, conn)
	s.ws.Send(conn, s.roomSnapshot(room.ID))
	go s.readWS(topic, conn, nil)
}

func (s *Server) handleGameWebsocket(c *gin.Context) {
	gameID := c.Param("id")
	if _, ok := s.store.GetGame(gameID); !ok {
		c.Status(http.StatusNotFound)
		return
	}
	conn, err := upgradeWebsocket(c)
	if err != nil {
		return
	}
	topic := topicGame + gameID
	log.Printf("ws connected game_id=%s remote=%s", gameID, c.Request.RemoteAddr)
	s.ws.Add(topic, conn)
	s.ws.Send(conn, s.gameSnapshot(gameID))
	s.ensureGameWatcher(gameID)
	go s.readWS(topic, conn, func() {
		// Last viewer gone: stop polling and abort any in-flight generation.
		s.stopGameWatcher(gameID)
		s.abortGeneration(gameID)
	})
}

func upgradeWebsocket(c *gin.Context) (*websocket.Conn, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	return upgrader.Upgrade(c.Writer, c.Request, nil)
}

func (s *Server) readWS(topic string, conn *websocket.Conn, onEmpty func()) {
	defer func() {
		if s.ws.Remove(topic, conn) && onEmpty != nil {
			onEmpty()
		}
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected topic=%s error=%v", topic, err)
			return
		}
	}
}

func (s *Server) broadcastRoomUpdate(roomID string) {
	if s.ws == nil {
		return
	}
	s.ws.Broadcast(topicRoom+roomID, s.roomSnapshot(roomID))
}

func (s *Server) broadcastGameUpdate(gameID string) {
	if s.ws == nil {
		return
	}
	snapshot := s.gameSnapshot(gameID)
	if snapshot == nil {
		return
	}
	s.ws.Broadcast(topicGame+gameID, snapshot)
	if roomID, ok := snapshot["room_id"].(string); ok && roomID != "" {
		s.broadcastRoomUpdate(roomID)
	}
}
