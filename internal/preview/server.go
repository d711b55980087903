// Package preview serves the most recent city to browsers over HTTP and
// WebSocket.
package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/citygen/internal/citygen"
	"github.com/lawnchairsociety/citygen/internal/config"
	"github.com/lawnchairsociety/citygen/internal/export"
	"github.com/lawnchairsociety/citygen/internal/logger"
)

// Status is the JSON body of the status endpoint.
type Status struct {
	Digest  string `json:"digest"`
	Seed    int64  `json:"seed"`
	Streets int    `json:"streets"`
	Blocks  int    `json:"blocks"`
	Parcels int    `json:"parcels"`
	Viewers int    `json:"viewers"`
}

// Server pushes the published city to every connected viewer.
type Server struct {
	cfg         config.PreviewConfig
	connLimiter *ConnLimiter

	mu      sync.RWMutex
	current []byte
	status  Status
	clients map[*client]struct{}
}

// New creates a server that has nothing to show until Publish is called.
func New(cfg config.PreviewConfig) *Server {
	return &Server{
		cfg:         cfg,
		connLimiter: NewConnLimiter(cfg.MaxPerIP, cfg.MaxConnections),
		clients:     make(map[*client]struct{}),
	}
}

// Publish replaces the current city and sends it to every viewer. Viewers
// that cannot be written to are disconnected.
func (s *Server) Publish(city *citygen.City) error {
	var buf bytes.Buffer
	if err := export.WriteGeoJSON(&buf, city); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = buf.Bytes()
	s.status = Status{
		Digest:  city.Digest,
		Seed:    city.Seed,
		Streets: len(city.Streets),
		Blocks:  len(city.Blocks),
		Parcels: city.Stats.Parcels,
	}
	viewers := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		viewers = append(viewers, c)
	}
	data := s.current
	s.mu.Unlock()

	for _, c := range viewers {
		if err := c.write(data); err != nil {
			logger.Warning("dropping preview viewer", "client_ip", c.ip, "error", err)
			c.close()
		}
	}
	logger.Debug("published city", "digest", city.Digest, "viewers", len(viewers))
	return nil
}

// Handler returns the HTTP routes of the preview.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/city.geojson", s.handleGeoJSON)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// ListenAndServe serves until ctx is canceled, then shuts down and
// disconnects every viewer.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warning("preview shutdown", "error", err)
		}
		s.closeAll()
	}()

	logger.Info("Preview server listening", "address", address)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data := s.current
	s.mu.RUnlock()

	if data == nil {
		http.Error(w, "no city has been generated yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.status
	status.Viewers = len(s.clients)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := realIP(r)

	if !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(clientIP)
		return
	}

	go s.handleConnection(newClient(wsConn, clientIP))
}

// handleConnection sends the current city, then answers viewer commands
// until the connection closes.
func (s *Server) handleConnection(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	data := s.current
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		s.connLimiter.Release(c.ip)
		c.close()
	}()

	if data != nil {
		if err := c.write(data); err != nil {
			return
		}
	}

	for {
		cmd, err := c.readCommand()
		if err != nil {
			return
		}
		switch cmd {
		case "refresh":
			s.mu.RLock()
			data = s.current
			s.mu.RUnlock()
			if data != nil {
				err = c.write(data)
			}
		case "ping":
			err = c.write([]byte("pong"))
		default:
			logger.Debug("unknown preview command", "command", cmd, "client_ip", c.ip)
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) closeAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.close()
	}
}
