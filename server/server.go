// Package server exposes the constants service over HTTP.
//
// Endpoints:
//   - GET  /          liveness greeting
//   - GET  /health    health probe
//   - GET  /quit      fires the shutdown trigger
//   - POST /constants batch constant resolution
//   - GET  /view-csv  raw dataset as escaped HTML
//   - GET  /metrics   Prometheus metrics
package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"constserv/config"
	"constserv/constants"
	"constserv/lifecycle"
)

// DefaultEventTopic is the Kafka topic lookup events are published to.
const DefaultEventTopic = "constants/lookups"

// EventPublisher receives lookup events. kafka.KafkaPublisher satisfies it.
type EventPublisher interface {
	Publish(topic string, data map[string]interface{}) error
}

// Server routes HTTP requests to the constant resolver and the operational endpoints.
type Server struct {
	settings  config.Settings
	router    *mux.Router
	resolver  constants.NameResolver
	quit      lifecycle.Trigger
	publisher EventPublisher
	topic     string
	log       *zap.Logger
	events    sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithPublisher publishes a lookup event per batch to topic.
func WithPublisher(p EventPublisher, topic string) Option {
	return func(s *Server) {
		s.publisher = p
		if topic != "" {
			s.topic = topic
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// NewServer creates a server. settings is shared read-only with every handler.
func NewServer(settings config.Settings, resolver constants.NameResolver, quit lifecycle.Trigger, opts ...Option) *Server {
	s := &Server{
		settings: settings,
		router:   mux.NewRouter(),
		resolver: resolver,
		quit:     quit,
		topic:    DefaultEventTopic,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestIDMiddleware, s.observeMiddleware)

	s.router.HandleFunc("/", s.handleHello).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/quit", s.handleQuit).Methods(http.MethodGet)
	s.router.HandleFunc("/constants", s.handleConstants).Methods(http.MethodPost)
	s.router.HandleFunc("/view-csv", s.handleViewCSV).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until every pending lookup event has been handed to the publisher.
func (s *Server) Wait() {
	s.events.Wait()
}
