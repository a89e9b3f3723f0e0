package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/obarth/ogate/internal/log"
)

// Server wraps the Handler with an http.Server for lifecycle management.
type Server struct {
	server   *http.Server
	listener net.Listener
	port     int
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Addr is the address to listen on, e.g. "localhost:8778". Port 0
	// lets the OS assign one; use Port after NewServer to read it.
	Addr string
	// Handler serves the routes.
	Handler *Handler
	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration
}

// NewServer binds the listener and prepares the HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	return &Server{
		listener: listener,
		port:     port,
		server: &http.Server{
			Handler:           cfg.Handler.Routes(),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
	}, nil
}

// Start serves requests until the server is stopped or fails.
func (s *Server) Start() error {
	log.Info(log.CatAPI, "starting API server", "addr", s.listener.Addr().String())
	return s.server.Serve(s.listener)
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatAPI, "stopping API server")
	return s.server.Shutdown(ctx)
}

// Port returns the bound port, useful with ":0".
func (s *Server) Port() int {
	return s.port
}
