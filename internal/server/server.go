package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"word-party/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	store      *Store
	db         *gorm.DB
	cfg        config.Config
	ws         *wsHub
	guard      *guardStore
	limiter    *rateLimiter
	images     *imageStore
	httpClient *http.Client
	now        func() time.Time

	watchersMu sync.Mutex
	watchers   map[string]*watcher

	inflightMu sync.Mutex
	inflight   map[string]context.CancelFunc
}

func New(conn *gorm.DB, redisClient *redis.Client, cfg config.Config) *Server {
	return &Server{
		store:      NewStore(),
		db:         conn,
		cfg:        cfg,
		ws:         newWSHub(),
		guard:      newGuardStore(redisClient),
		limiter:    newRateLimiter(),
		images:     newImageStore(cfg.StoryImageDir, cfg.PublicBaseURL),
		httpClient: &http.Client{},
		now:        timeNowUTC,
		watchers:   make(map[string]*watcher),
		inflight:   make(map[string]context.CancelFunc),
	}
}

func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.POST("/session", s.handleCreateSession)
	api.GET("/templates/categories", s.handleTemplateCategories)

	authed := api.Group("", s.authRequired())
	authed.POST("/rooms", s.handleCreateRoom)
	authed.POST("/rooms/join", s.handleJoinRoom)
	authed.GET("/rooms/:code", s.handleGetRoom)
	authed.POST("/rooms/:code/leave", s.handleLeaveRoom)
	authed.POST("/rooms/:code/games", s.handleStartGame)
	authed.GET("/games/:id", s.handleGetGame)
	authed.POST("/games/:id/ready", s.handleReady)
	authed.POST("/games/:id/decline", s.handleDecline)
	authed.POST("/games/:id/force-start", s.handleForceStart)
	authed.POST("/games/:id/cancel", s.handleCancelGame)
	authed.POST("/games/:id/words", s.handleSubmitWord)
	authed.GET("/games/:id/suggestions", s.handleWordSuggestions)
	authed.GET("/games/:id/story", s.handleGetStory)
	authed.POST("/games/:id/illustrations", s.handleGenerateIllustrations)
	authed.GET("/stories", s.handleStoryHistory)

	router.GET("/ws/rooms/:code", s.handleRoomWebsocket)
	router.GET("/ws/games/:id", s.handleGameWebsocket)
	router.Static("/static/story-images", s.cfg.StoryImageDir)
	return router
}

// Close tears down every watcher and aborts in-flight generation calls.
func (s *Server) Close() {
	s.watchersMu.Lock()
	watchers := make(map[string]*watcher, len(s.watchers))
	for id, w := range s.watchers {
		watchers[id] = w
	}
	s.watchersMu.Unlock()
	for id := range watchers {
		s.stopGameWatcher(id)
	}

	s.inflightMu.Lock()
	for _, cancel := range s.inflight {
		cancel()
	}
	s.inflightMu.Unlock()
}
