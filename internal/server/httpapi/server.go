// Package httpapi is the HTTP transport: a gin engine carrying the
// authentication endpoints, the access and authorization middleware, and
// the operational endpoints. Business modules mount their routes through
// WithRoutes and read the caller from auth.PrincipalFromContext.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/logging"
	"github.com/dmitrijs2005/farmtrack/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const shutdownTimeout = 5 * time.Second

// Server serves the HTTP API.
type Server struct {
	address string
	logger  logging.Logger
	svc     AuthAPI
	policy  *auth.Policy
	metrics *Metrics
	engine  *gin.Engine

	routes     []func(*gin.RouterGroup)
	limitRate  float64
	limitBurst int
}

// Option customizes a Server.
type Option func(*Server)

// WithRoutes registers business handlers. They run behind the same access
// and authorization middleware as the built-in routes.
func WithRoutes(register func(*gin.RouterGroup)) Option {
	return func(s *Server) {
		if register != nil {
			s.routes = append(s.routes, register)
		}
	}
}

// WithRateLimit limits sign-up, sign-in and refresh per client IP.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.limitRate = perSecond
		s.limitBurst = burst
	}
}

// WithMetrics replaces the server's metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewServer builds the engine and registers every route.
func NewServer(address string, l logging.Logger, svc AuthAPI, policy *auth.Policy, opts ...Option) *Server {
	s := &Server{
		address: address,
		logger:  l.With("module", "http_server"),
		svc:     svc,
		policy:  policy,
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	useJSONFieldNames()
	s.engine = s.buildEngine()
	return s
}

func (s *Server) buildEngine() *gin.Engine {
	e := gin.New()
	e.HandleMethodNotAllowed = false
	// Client IP is the peer address; no proxy headers are trusted.
	_ = e.SetTrustedProxies(nil)

	e.Use(
		Recovery(s.logger),
		s.metrics.instrument(),
		RequestLogger(s.logger),
		Access(s.svc, s.policy),
		Authorize(s.policy, s.metrics),
	)

	e.GET("/health", s.health)
	e.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	limited := RateLimit(s.limitRate, s.limitBurst)
	a := e.Group("/auth")
	a.POST("/sign-up", limited, s.signUp)
	a.POST("/sign-in", limited, s.signIn)
	a.POST("/refresh", limited, s.refresh)
	a.DELETE("/logout", s.logout)
	a.DELETE("/tokens/:id", s.revokeToken)

	e.GET("/profiles/me", s.me)
	e.DELETE("/profiles/:id", s.deactivateProfile)

	for _, register := range s.routes {
		register(&e.RouterGroup)
	}

	e.NoRoute(s.notFound)
	return e
}

// Handler returns the HTTP handler (tests, embedding).
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Run listens on the configured address and serves until ctx is canceled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}

var jsonNamesOnce sync.Once

// useJSONFieldNames makes validation errors report json field names.
func useJSONFieldNames() {
	jsonNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
}
