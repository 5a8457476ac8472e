package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/roomies/internal/choreflow"
	"github.com/dukerupert/roomies/internal/config"
	"github.com/dukerupert/roomies/internal/handler"
	"github.com/dukerupert/roomies/internal/middleware"
	"github.com/dukerupert/roomies/internal/store"
	ws "github.com/dukerupert/roomies/internal/websocket"
)

var loginLimit = middleware.Limit{Requests: 10, Window: time.Minute}

type Server struct {
	hub          *ws.Hub
	flow         *choreflow.Service
	authH        *handler.AuthHandler
	roomH        *handler.RoomHandler
	choreH       *handler.ChoreHandler
	presenceH    *handler.PresenceHandler
	postH        *handler.PostHandler
	socketH      *handler.SocketHandler
	sessionStore *store.SessionStore
	roomStore    *store.RoomStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg config.Config, alloc choreflow.Allocator, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.SessionTTL)
	roomStore := store.NewRoomStore(db)
	choreStore := store.NewChoreStore(db)
	postStore := store.NewPostStore(db)

	flow := choreflow.NewService(roomStore, choreStore, userStore, alloc, hub, logger)

	return &Server{
		hub:          hub,
		flow:         flow,
		authH:        handler.NewAuthHandler(userStore, sessionStore, cfg.SessionTTL, logger.With("component", "auth")),
		roomH:        handler.NewRoomHandler(roomStore, flow, logger.With("component", "room")),
		choreH:       handler.NewChoreHandler(flow, logger.With("component", "chore")),
		presenceH:    handler.NewPresenceHandler(userStore, flow, cfg.HomeRadiusMeters, logger.With("component", "presence")),
		postH:        handler.NewPostHandler(postStore, flow, logger.With("component", "post")),
		socketH:      handler.NewSocketHandler(flow, cfg.AllowedOrigins, logger.With("component", "room_feed")),
		sessionStore: sessionStore,
		roomStore:    roomStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RoomStore returns the room store for startup recovery.
func (s *Server) RoomStore() *store.RoomStore {
	return s.roomStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", handler.Health)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByIP, loginLimit)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Rooms
	mux.HandleFunc("POST /api/rooms", s.roomH.Create)
	mux.HandleFunc("POST /api/rooms/join", s.roomH.Join)
	mux.HandleFunc("GET /api/rooms", s.roomH.List)
	mux.HandleFunc("GET /api/rooms/{id}", s.roomH.Get)
	mux.HandleFunc("DELETE /api/rooms/{id}", s.roomH.Delete)

	// Chore workflow
	mux.HandleFunc("GET /api/rooms/{id}/chores", s.choreH.List)
	mux.HandleFunc("POST /api/rooms/{id}/chores", s.choreH.Create)
	mux.HandleFunc("DELETE /api/rooms/{id}/chores/{chore_id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/rooms/{id}/chores/{chore_id}/done", s.choreH.Done)
	mux.HandleFunc("POST /api/rooms/{id}/chores/confirm", s.choreH.Confirm)
	mux.HandleFunc("POST /api/rooms/{id}/chores/rankings", s.choreH.SubmitRanking)
	mux.HandleFunc("POST /api/rooms/{id}/chores/reset", s.choreH.Reset)
	mux.HandleFunc("POST /api/rooms/{id}/chores/dispatch", s.choreH.Dispatch)

	// Presence
	mux.HandleFunc("PUT /api/rooms/{id}/presence", s.presenceH.Update)
	mux.HandleFunc("GET /api/rooms/{id}/presence", s.presenceH.List)

	// Feed
	mux.HandleFunc("POST /api/rooms/{id}/posts", s.postH.Create)
	mux.HandleFunc("GET /api/rooms/{id}/posts", s.postH.List)
	mux.HandleFunc("POST /api/rooms/{id}/posts/{post_id}/like", s.postH.ToggleLike)
	mux.HandleFunc("DELETE /api/rooms/{id}/posts/{post_id}", s.postH.Delete)

	mux.HandleFunc("GET /ws/rooms/{id}", s.socketH.Room)
}
