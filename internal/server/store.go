package server

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxRoomCodeAttempts = 10

// Store is the authoritative in-memory view of rooms, games and stories.
// Database persistence mirrors it via the persist helpers; every mutation runs
// under the store lock so concurrent client actions serialize here.
type Store struct {
	mu          sync.Mutex
	users       map[string]*User
	usersByName map[string]string
	rooms       map[string]*Room
	roomsByCode map[string]string
	games       map[string]*Game
	stories     map[string]*Story
	templates   []Template
	wordBank    []WordBankEntry
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]*User),
		usersByName: make(map[string]string),
		rooms:       make(map[string]*Room),
		roomsByCode: make(map[string]string),
		games:       make(map[string]*Game),
		stories:     make(map[string]*Story),
	}
}

func (s *Store) EnsureUser(username string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(username)
	if id, ok := s.usersByName[key]; ok {
		return s.users[id]
	}
	user := &User{ID: uuid.NewString(), Username: username}
	s.users[user.ID] = user
	s.usersByName[key] = user.ID
	return user
}

func (s *Store) GetUser(id string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	return user, ok
}

// CreateRoom generates a collision-free room code, retrying up to
// maxRoomCodeAttempts before giving up. The creator joins as host.
func (s *Store) CreateRoom(hostID string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[hostID]; !ok {
		return nil, ErrNotFound
	}

	code := newRoomCode()
	attempts := 0
	for {
		if _, taken := s.roomsByCode[code]; !taken {
			break
		}
		attempts++
		if attempts == maxRoomCodeAttempts {
			return nil, errors.New("failed to generate unique room code")
		}
		code = newRoomCode()
	}

	room := &Room{
		ID:        uuid.NewString(),
		Code:      code,
		HostID:    hostID,
		Active:    true,
		CreatedAt: timeNowUTC(),
	}
	room.Participants = append(room.Participants, RoomParticipant{
		UserID:   hostID,
		JoinedAt: room.CreatedAt,
	})
	s.rooms[room.ID] = room
	s.roomsByCode[code] = room.ID
	return room, nil
}

func (s *Store) GetRoom(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	return room, ok
}

func (s *Store) FindRoomByCode(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.roomsByCode[code]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[id]
	return room, ok
}

// JoinRoom adds the user to the room's participant set. Joining a room the
// user is already in is a no-op; a user holds at most one participant row per
// room.
func (s *Store) JoinRoom(code, userID string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.roomsByCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	room := s.rooms[id]
	if !room.Active {
		return nil, ErrNotFound
	}
	for _, participant := range room.Participants {
		if participant.UserID == userID {
			return room, nil
		}
	}
	room.Participants = append(room.Participants, RoomParticipant{
		UserID:   userID,
		JoinedAt: timeNowUTC(),
	})
	return room, nil
}

// LeaveRoom removes the user's participant row. The second return reports
// whether the departing user was the room host.
func (s *Store) LeaveRoom(roomID, userID string) (*Room, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, false, ErrNotFound
	}
	found := false
	for i, participant := range room.Participants {
		if participant.UserID == userID {
			room.Participants = append(room.Participants[:i], room.Participants[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return nil, false, ErrNotFound
	}
	hostLeft := room.HostID == userID
	if len(room.Participants) == 0 {
		room.Active = false
	}
	return room, hostLeft, nil
}

func (s *Store) UpdateRoom(id string, update func(room *Room) error) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := update(room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Store) SetTemplates(templates []Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = templates
}

func (s *Store) TemplatesByCategory(category string) []Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Template, 0)
	for _, tmpl := range s.templates {
		if tmpl.Active && tmpl.Category == category {
			out = append(out, tmpl)
		}
	}
	return out
}

func (s *Store) TemplateCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, tmpl := range s.templates {
		if !tmpl.Active {
			continue
		}
		if _, ok := seen[tmpl.Category]; ok {
			continue
		}
		seen[tmpl.Category] = struct{}{}
		out = append(out, tmpl.Category)
	}
	sort.Strings(out)
	return out
}

func (s *Store) SetWordBank(entries []WordBankEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wordBank = entries
}

func (s *Store) WordBankByType(wordType string) []WordBankEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WordBankEntry, 0)
	for _, entry := range s.wordBank {
		if entry.Active && entry.Type == wordType {
			out = append(out, entry)
		}
	}
	return out
}

func (s *Store) FindWordBankEntry(id uint) (WordBankEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.wordBank {
		if entry.ID == id {
			return entry, true
		}
	}
	return WordBankEntry{}, false
}

// CreateGame opens a ready check for the room: every current room participant
// is copied into the game's participant set unready with no allocation, except
// the host who is marked ready at creation.
func (s *Store) CreateGame(roomID string, tmpl Template) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	if room.CurrentGameID != "" {
		if existing, ok := s.games[room.CurrentGameID]; ok && existing.Status == statusWaiting {
			return nil, ErrConflict
		}
	}
	game := &Game{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Template:    tmpl,
		Status:      statusWaiting,
		CreatedAt:   timeNowUTC(),
		Submissions: make(map[int]Submission),
	}
	for _, participant := range room.Participants {
		game.Participants = append(game.Participants, GameParticipant{
			UserID:  participant.UserID,
			IsReady: participant.UserID == room.HostID,
		})
	}
	s.games[game.ID] = game
	room.CurrentGameID = game.ID
	return game, nil
}

func (s *Store) GetGame(id string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	return game, ok
}

func (s *Store) UpdateGame(id string, update func(game *Game) error) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := update(game); err != nil {
		return nil, err
	}
	return game, nil
}

// DeleteGame removes the game and detaches it from its room. Used by cancel,
// which deletes participants and the game record together.
func (s *Store) DeleteGame(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return
	}
	if room, ok := s.rooms[game.RoomID]; ok && room.CurrentGameID == id {
		room.CurrentGameID = ""
	}
	delete(s.games, id)
}

func (s *Store) CreateStory(gameID, text string) (*Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.stories[gameID]; ok {
		return existing, false
	}
	story := &Story{
		GameID:    gameID,
		Text:      text,
		CreatedAt: timeNowUTC(),
	}
	s.stories[gameID] = story
	return story, true
}

func (s *Store) GetStory(gameID string) (*Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	story, ok := s.stories[gameID]
	return story, ok
}

func (s *Store) UpdateStory(gameID string, update func(story *Story) error) (*Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	story, ok := s.stories[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := update(story); err != nil {
		return nil, err
	}
	return story, nil
}

// StoriesForUser lists finished stories from games the user played in, newest
// first. Backs the history view.
func (s *Store) StoriesForUser(userID string) []*Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Story, 0)
	for gameID, story := range s.stories {
		game, ok := s.games[gameID]
		if !ok {
			continue
		}
		for _, participant := range game.Participants {
			if participant.UserID == userID {
				out = append(out, story)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
