// Package server exposes the message store and attachment storage over
// HTTP, and relays the store's insert feed to remote clients over a
// websocket.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"moodchat/internal/attach"
	"moodchat/internal/blob"
	"moodchat/internal/chaterr"
	"moodchat/internal/store"
)

// Options configures the serving surface.
type Options struct {
	MaxUploadBytes int64
	// WriteRPS/WriteBurst bound the mutating endpoints; zero disables
	// limiting.
	WriteRPS   float64
	WriteBurst int
}

const defaultMaxUploadBytes = 10 << 20

// Server bundles the chat HTTP handlers, the websocket hub, and metrics.
type Server struct {
	store    store.Store
	storage  blob.ObjectStorage
	uploader *attach.Uploader
	hub      *Hub
	metrics  *Metrics
	limiter  *rate.Limiter
	upgrader websocket.Upgrader

	maxUploadBytes int64
	sub            *store.Subscription
	pingDone       chan struct{}
}

func New(st store.Store, storage blob.ObjectStorage, uploader *attach.Uploader, opts Options) *Server {
	metrics := NewMetrics()
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	var limiter *rate.Limiter
	if opts.WriteRPS > 0 {
		burst := opts.WriteBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.WriteRPS), burst)
	}
	s := &Server{
		store:          st,
		storage:        storage,
		uploader:       uploader,
		hub:            NewHub(metrics),
		metrics:        metrics,
		limiter:        limiter,
		maxUploadBytes: maxUpload,
		pingDone:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.sub = st.SubscribeOnInsert(s.hub.BroadcastInsert)
	go s.pingLoop()
	return s
}

// Close releases the store subscription and every websocket.
func (s *Server) Close() {
	close(s.pingDone)
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.hub.Close()
}

func (s *Server) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.pingDone:
			return
		case <-ticker.C:
			s.hub.Ping()
		}
	}
}

// Router wires up chi routes, middleware, and handlers ready for
// http.ListenAndServe.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Chat-Role"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.accessLog())

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Get("/api/messages", s.handleListMessages)
	r.With(s.writeLimited).Post("/api/messages", s.handlePostMessage)
	r.With(s.writeLimited).Post("/api/attachments", s.handleUpload)
	r.Get("/attachments/{key}", s.handleAttachment)
	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	s.metrics.MessageFetches.Inc()
	msgs, err := s.store.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var row store.Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	msg, err := s.store.Insert(r.Context(), row)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.MessagesInserted.Inc()
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	info, rc, err := s.storage.Open(key)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("attachment %s stream aborted: %v", key, err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := s.hub.Register(conn)
	// reads only to observe the close handshake
	go func() {
		defer s.hub.Unregister(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) writeLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.metrics.RateLimited.Inc()
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response encode error: %v", err)
	}
}

// writeError maps the chat error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch chaterr.CodeOf(err) {
	case chaterr.CodeInvalidArg:
		status = http.StatusBadRequest
	case chaterr.CodeNotFound:
		status = http.StatusNotFound
	case chaterr.CodeTimeout:
		status = http.StatusGatewayTimeout
	}
	var ce *chaterr.ChatError
	if errors.As(err, &ce) {
		writeJSON(w, status, map[string]string{"code": string(ce.Code), "message": ce.Message})
		return
	}
	http.Error(w, err.Error(), status)
}
