package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type joinRoomRequest struct {
	Code string `json:"code" binding:"required,roomcode"`
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	if !s.enforceRateLimit(c, "create-room") {
		return
	}
	userID := currentUserID(c)
	room, err := s.store.CreateRoom(userID)
	if err != nil {
		writeStoreError(c, err, "failed to create room")
		return
	}
	if err := s.persistRoom(room); err != nil {
		log.Printf("persist room failed room_id=%s error=%v", room.ID, err)
	}
	s.persistEvent(room.ID, "", "room_created", EventPayload{RoomCode: room.Code, UserID: userID})
	log.Printf("room created room_id=%s room_code=%s host_id=%s", room.ID, room.Code, userID)
	c.JSON(http.StatusCreated, s.roomSnapshot(room.ID))
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if !bindJSON(c, &req, bindMessages{
		"Code": {"required": "room code is required", "roomcode": "room code must be 8 uppercase letters or digits"},
	}, "invalid join request") {
		return
	}
	userID := currentUserID(c)
	room, err := s.store.JoinRoom(req.Code, userID)
	if err != nil {
		writeStoreError(c, err, "room not found")
		return
	}
	if err := s.persistRoomParticipant(room.ID, userID); err != nil {
		log.Printf("persist room participant failed room_id=%s user_id=%s error=%v", room.ID, userID, err)
	}
	s.persistEvent(room.ID, "", "room_joined", EventPayload{RoomCode: room.Code, UserID: userID})
	log.Printf("room joined room_id=%s room_code=%s user_id=%s", room.ID, room.Code, userID)
	s.broadcastRoomUpdate(room.ID)
	c.JSON(http.StatusOK, s.roomSnapshot(room.ID))
}

func (s *Server) handleGetRoom(c *gin.Context) {
	code := c.Param("code")
	if !isValidRoomCode(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room code must be 8 uppercase letters or digits"})
		return
	}
	room, ok := s.store.FindRoomByCode(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, s.roomSnapshot(room.ID))
}

// handleLeaveRoom removes the caller's participant row. Best-effort cleanup
// on navigation hits this too, so a missing row is not an error worth
// surfacing.
func (s *Server) handleLeaveRoom(c *gin.Context) {
	code := c.Param("code")
	room, ok := s.store.FindRoomByCode(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	userID := currentUserID(c)
	room, hostLeft, err := s.store.LeaveRoom(room.ID, userID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"left": false})
		return
	}
	if err := s.deleteRoomParticipant(room.ID, userID); err != nil {
		log.Printf("delete room participant failed room_id=%s user_id=%s error=%v", room.ID, userID, err)
	}
	s.persistEvent(room.ID, "", "room_left", EventPayload{RoomCode: room.Code, UserID: userID})
	if hostLeft {
		s.handleHostDeparture(room)
	}
	s.broadcastRoomUpdate(room.ID)
	c.JSON(http.StatusOK, gin.H{"left": true})
}

func (s *Server) handleTemplateCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.store.TemplateCategories()})
}
