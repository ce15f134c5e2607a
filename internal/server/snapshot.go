package server

// Snapshot builders are the single state-normalization routine for every
// delivery path: websocket push, watcher polls and plain GET handlers all
// return exactly these shapes, so the two convergence channels can never
// diverge in merge logic.

func (s *Server) roomSnapshot(roomID string) map[string]any {
	room, ok := s.store.GetRoom(roomID)
	if !ok {
		return nil
	}
	participants := make([]map[string]any, 0, len(room.Participants))
	for _, participant := range room.Participants {
		participants = append(participants, map[string]any{
			"user_id":  participant.UserID,
			"username": s.usernameFor(participant.UserID),
			"is_host":  participant.UserID == room.HostID,
		})
	}
	return map[string]any{
		"type":            "room",
		"room_id":         room.ID,
		"room_code":       room.Code,
		"host_id":         room.HostID,
		"active":          room.Active,
		"current_game_id": room.CurrentGameID,
		"participants":    participants,
	}
}

func (s *Server) gameSnapshot(gameID string) map[string]any {
	game, ok := s.store.GetGame(gameID)
	if !ok {
		return nil
	}
	readyCount := 0
	participants := make([]map[string]any, 0, len(game.Participants))
	for _, participant := range game.Participants {
		if participant.IsReady {
			readyCount++
		}
		positions := participant.WordsAssigned
		if positions == nil {
			positions = []int{}
		}
		participants = append(participants, map[string]any{
			"user_id":        participant.UserID,
			"username":       s.usernameFor(participant.UserID),
			"is_ready":       participant.IsReady,
			"words_assigned": positions,
		})
	}
	submitted := make([]int, 0, len(game.Submissions))
	for position := range game.Submissions {
		submitted = append(submitted, position)
	}

	snapshot := map[string]any{
		"type":                "game",
		"game_id":             game.ID,
		"room_id":             game.RoomID,
		"status":              game.Status,
		"category":            game.Template.Category,
		"title":               game.Template.Title,
		"placeholders":        game.Template.Placeholders,
		"participants":        participants,
		"ready_count":         readyCount,
		"total_count":         len(game.Participants),
		"submitted_positions": submitted,
		"created_at":          game.CreatedAt,
	}
	if game.StartedAt != nil {
		snapshot["started_at"] = *game.StartedAt
	}
	if story, ok := s.store.GetStory(gameID); ok {
		snapshot["story"] = storySnapshot(story)
	}
	return snapshot
}

func storySnapshot(story *Story) map[string]any {
	urls := story.ImageURLs
	if urls == nil {
		urls = []string{}
	}
	return map[string]any{
		"game_id":          story.GameID,
		"story_text":       story.Text,
		"images_generated": story.ImagesGenerated,
		"image_urls":       urls,
	}
}

func (s *Server) usernameFor(userID string) string {
	if user, ok := s.store.GetUser(userID); ok {
		return user.Username
	}
	return ""
}
