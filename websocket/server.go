package websocket

import (
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"pinas/metrics"
)

const defaultCheckInterval = 10 * time.Second

type Server struct {
	*Conn
	// Only touched before Start and from the dispatch goroutine
	services       map[string]Service
	activeServices []string

	lastActiveTime atomic.Int64
	timeout        time.Duration
	checkInterval  time.Duration
	done           chan struct{}
	log            zerolog.Logger
}

// NewServer upgrades the request. The session is closed when no active
// service received a message for timeout.
func NewServer(w http.ResponseWriter, r *http.Request, timeout time.Duration, log zerolog.Logger) (*Server, error) {
	conn, err := NewConn(w, r, log)
	if err != nil {
		return nil, err
	}

	server := &Server{
		Conn:          conn,
		services:      make(map[string]Service),
		timeout:       timeout,
		checkInterval: defaultCheckInterval,
		done:          make(chan struct{}),
		log:           log,
	}
	server.touch()

	return server, nil
}

func (s *Server) touch() {
	s.lastActiveTime.Store(time.Now().UnixNano())
}

func (s *Server) idle() time.Duration {
	return time.Since(time.Unix(0, s.lastActiveTime.Load()))
}

func (s *Server) checkTimeout() {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.idle() > s.timeout {
				s.log.Info().Dur("idle", s.idle()).Msg("closing idle session")
				s.Close()
				return
			}
		}
	}
}

// Register adds a service whose messages keep the session alive.
func (s *Server) Register(service Service) {
	if s.RegisterPassive(service) {
		s.activeServices = append(s.activeServices, service.Name())
	}
}

// RegisterPassive adds a service whose messages do not count as activity.
func (s *Server) RegisterPassive(service Service) bool {
	if _, exists := s.services[service.Name()]; exists {
		s.log.Warn().Str("service", service.Name()).Msg("service already registered")
		return false
	}

	service.Register(s.Conn)
	s.services[service.Name()] = service
	return true
}

// Start serves the session and blocks until the connection is gone. Every
// service is cleaned up before it returns.
func (s *Server) Start() {
	metrics.SessionOpened()
	defer metrics.SessionClosed()

	go s.checkTimeout()

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for msg := range s.TextMessage {
			s.handle(msg)
		}
	}()

	err := s.StartDispatch()
	<-consumed
	close(s.done)

	s.log.Debug().Err(err).Msg("session closed")
	for _, svc := range s.services {
		svc.Cleanup(err)
	}
}

func (s *Server) handle(msg *ServiceMessage) {
	if slices.Contains(s.activeServices, msg.Service) {
		s.touch()
	}

	svc, exists := s.services[msg.Service]
	if !exists {
		s.WriteJSON(&ServiceMessage{
			Service: msg.Service,
			Id:      msg.Id,
			Action:  msg.Action,
			Error:   "unknown service",
		})
		return
	}
	svc.HandleTextMessage(msg.Id, msg.Action, msg.Data)
}
