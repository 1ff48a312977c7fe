package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danmuck/matrixd/internal/logging"
	"github.com/danmuck/matrixd/internal/protocol/session"
	"github.com/rs/zerolog"
)

var ErrAddrRequired = errors.New("server: listen addr required")

// Config configures the compute listener and the optional admin endpoint.
type Config struct {
	Name             string
	Addr             string
	AdminAddr        string
	// AdminCORSOrigins enables CORS on the admin endpoint for the listed origins.
	AdminCORSOrigins []string
	Session          session.Config
}

func DefaultConfig() Config {
	return Config{
		Name:    "matrixd",
		Addr:    ":8888",
		Session: session.DefaultConfig(),
	}
}

// Server accepts compute clients, one goroutine and one Session per connection.
type Server struct {
	cfg    Config
	logger zerolog.Logger
	kernel session.Kernel

	startedAt time.Time
	active    atomic.Int64
	served    atomic.Uint64
	ready     atomic.Bool
}

func New(cfg Config) *Server {
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = DefaultConfig().Name
	}
	return &Server{
		cfg:       cfg,
		logger:    logging.Component("server"),
		startedAt: time.Now(),
	}
}

// WithKernel overrides the kernel used by every new session.
func (s *Server) WithKernel(k session.Kernel) *Server {
	s.kernel = k
	return s
}

func (s *Server) WithLogger(logger zerolog.Logger) *Server {
	s.logger = logger
	return s
}

// ActiveClients reports the number of connections currently being served.
func (s *Server) ActiveClients() int64 {
	return s.active.Load()
}

// Run listens on cfg.Addr, serves the admin endpoint when configured, and blocks until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		return ErrAddrRequired
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	adminErr := make(chan error, 1)
	if admin := strings.TrimSpace(s.cfg.AdminAddr); admin != "" {
		srv := &http.Server{Addr: admin, Handler: s.AdminRouter()}
		go func() {
			s.logger.Info().Str("addr", admin).Msg("admin listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				adminErr <- err
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ctx, ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case err := <-adminErr:
		_ = ln.Close()
		<-serveErr
		return err
	}
}

// Serve accepts connections from ln until ctx ends or the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
	s.ready.Store(true)
	defer s.ready.Store(false)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info().Msg("shutdown")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn().Err(err).Msg("accept")
				continue
			}
			return err
		}
		go s.handleConn(conn)
	}
}
