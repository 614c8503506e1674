// Package stream implements the Event Bus / Stream Service (C7): a
// connection registry with Subscribe/SendToClient/Broadcast/Close and a
// keep-alive ticker, generalized from sse-rag-service/main.go's
// `clients map[string]chan SSEEvent` + `clientsMux sync.RWMutex` +
// `broadcastEvent`/`sendToClient` pair. That service only ever broadcast;
// this one adds per-client unicast, session-filtered multicast, and
// explicit close, and only runs the keep-alive ticker while at least one
// client is connected (spec.md §4.7).
package stream

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/autollama/ingestor/internal/model"
)

const defaultKeepAliveInterval = 30 * time.Second

// Writer is the narrow interface a registered client must satisfy — wide
// enough to be an SSE response writer, narrow enough to stay
// framework-agnostic (spec.md §4.7 Design Note: scope the HTTP surface out
// of C7 itself).
type Writer interface {
	Write(p []byte) (int, error)
	Flush()
}

type client struct {
	id        string
	sessionID string // empty means "interested in all sessions"
	w         Writer
	done      chan struct{}
}

// Service is the C7 contract.
type Service struct {
	mu            sync.RWMutex
	clients       map[string]*client
	keepAlive     time.Duration
	tickerStop    chan struct{}
	tickerRunning bool
	log           *zap.Logger
}

func New(keepAliveInterval time.Duration, log *zap.Logger) *Service {
	if keepAliveInterval <= 0 {
		keepAliveInterval = defaultKeepAliveInterval
	}
	return &Service{
		clients:   make(map[string]*client),
		keepAlive: keepAliveInterval,
		log:       log,
	}
}

// Subscribe registers w under clientID, filtered to sessionID (empty means
// unfiltered), writes the synthetic "connected" frame spec.md §6.1 requires
// as the first frame, and starts the keep-alive ticker if this is the
// first client. Returns an unsubscribe func.
func (s *Service) Subscribe(clientID, sessionID string, w Writer) func() {
	s.mu.Lock()
	s.clients[clientID] = &client{id: clientID, sessionID: sessionID, w: w, done: make(chan struct{})}
	first := len(s.clients) == 1
	s.mu.Unlock()

	_ = writeEvent(w, model.Event{
		Type:      model.EventConnected,
		Data:      map[string]string{"client_id": clientID},
		Timestamp: time.Now(),
	})

	if first {
		s.startKeepAlive()
	}

	return func() { s.Close(clientID) }
}

// Headers are the response headers an SSE handler must set before writing
// any frames (spec.md §6.1).
var Headers = map[string]string{
	"Content-Type":      "text/event-stream",
	"Cache-Control":     "no-cache",
	"Connection":        "keep-alive",
	"X-Accel-Buffering": "no",
}

// Close unregisters clientID and stops the keep-alive ticker if it was the
// last client.
func (s *Service) Close(clientID string) {
	s.mu.Lock()
	if c, ok := s.clients[clientID]; ok {
		close(c.done)
		delete(s.clients, clientID)
	}
	empty := len(s.clients) == 0
	s.mu.Unlock()

	if empty {
		s.stopKeepAlive()
	}
}

// SendToClient writes ev only to clientID, if still connected.
func (s *Service) SendToClient(clientID string, ev model.Event) error {
	s.mu.RLock()
	c, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return writeEvent(c.w, ev)
}

// Broadcast writes ev to every client whose session filter matches: an
// empty ev.SessionID reaches every client; a non-empty one reaches clients
// subscribed to that session plus unfiltered clients.
func (s *Service) Broadcast(ev model.Event) {
	s.mu.RLock()
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		if ev.SessionID == "" || c.sessionID == "" || c.sessionID == ev.SessionID {
			targets = append(targets, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range targets {
		if err := writeEvent(c.w, ev); err != nil {
			if s.log != nil {
				s.log.Warn("stream write failed, dropping client", zap.String("client_id", c.id), zap.Error(err))
			}
			s.Close(c.id)
		}
	}
}

func (s *Service) startKeepAlive() {
	s.mu.Lock()
	if s.tickerRunning {
		s.mu.Unlock()
		return
	}
	s.tickerRunning = true
	stop := make(chan struct{})
	s.tickerStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Broadcast(model.Event{Type: model.EventHeartbeat, Timestamp: time.Now()})
			}
		}
	}()
}

func (s *Service) stopKeepAlive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tickerRunning {
		return
	}
	close(s.tickerStop)
	s.tickerRunning = false
}

// writeEvent frames ev per spec.md §6.1: "data: {json}\n\n".
func writeEvent(w Writer, ev model.Event) error {
	payload, err := marshalEvent(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}
