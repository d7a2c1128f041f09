// Package server exposes the resolved environment and the token engine over a small read-only
// HTTP API.
package server

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/animalet/envtoken-go/pkg/config"
	"github.com/animalet/envtoken-go/pkg/tokens"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// Server serves the environment of one tokens.Engine.
type Server struct {
	config          Config
	engine          *tokens.Engine
	properties      config.Properties
	httpServer      *http.Server
	shutdownHooks   []func() error
	shutdownChannel chan os.Signal
}

var debug = false

// SetDebug switches gin between debug and release mode for servers started afterwards.
func SetDebug(debugEnabled bool) {
	debug = debugEnabled
}

// NewServer creates a Server. properties may be nil.
func NewServer(cfg Config, engine *tokens.Engine, properties config.Properties) *Server {
	return &Server{
		config:     cfg,
		engine:     engine,
		properties: properties,
	}
}

// StartAndWaitForSignal starts the server and blocks until SIGINT or SIGTERM, then shuts it
// down gracefully.
func (s *Server) StartAndWaitForSignal() error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.waitForSignal()
}

// Start begins listening in the background.
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:    s.config.Address,
		Handler: handler,
	}

	log.Info().Msgf("Starting server on %s", s.config.Address)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("Listen error: %s", err)
		}
	}()
	return nil
}

// Handler builds the gin engine with every route.
func (s *Server) Handler() (http.Handler, error) {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if gin.IsDebugging() {
		engine.Use(bodyLogMiddleware, gin.ErrorLogger())
	} else {
		if err := engine.SetTrustedProxies(nil); err != nil {
			return nil, err
		}
		engine.Use(gin.ErrorLoggerT(gin.ErrorTypePrivate))
	}

	csp := s.config.ContentSecurityPolicy
	if csp == "" {
		csp = defaultContentSecurityPolicy
	}
	engine.Use(
		gin.Logger(),
		gin.Recovery(),
		secure.New(secure.Config{
			AllowedHosts:          s.config.AllowedHosts,
			FrameDeny:             true,
			ContentTypeNosniff:    true,
			BrowserXssFilter:      true,
			ContentSecurityPolicy: csp,
			ReferrerPolicy:        "no-referrer",
		}),
	)

	h := &handlers{engine: s.engine, properties: s.properties}
	engine.GET("/healthz", h.health)
	engine.GET("/environment", h.environment)
	engine.GET("/tokens", h.tokens)
	engine.GET("/properties", h.resolvedProperties)
	engine.POST("/substitute", h.substitute)
	return engine, nil
}

// AddShutdownHook registers f to run after the HTTP server stopped.
func (s *Server) AddShutdownHook(f func() error) {
	s.shutdownHooks = append(s.shutdownHooks, f)
}

func (s *Server) waitForSignal() error {
	s.shutdownChannel = make(chan os.Signal, 1)
	signal.Notify(s.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	log.Info().Msgf("Shutdown signal received (%s)", <-s.shutdownChannel)
	return s.Shutdown()
}

// Shutdown waits for active requests to complete, then runs the shutdown hooks.
func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.shutdownTimeout())
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return errors.Wrap(err, "forced shutdown")
		}
	}

	for _, hook := range s.shutdownHooks {
		if err := hook(); err != nil {
			log.Error().Err(err).Msg("Error during shutdown hook")
		}
	}

	log.Info().Msg("Server exited gracefully")
	return nil
}

type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func bodyLogMiddleware(c *gin.Context) {
	blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
	c.Writer = blw
	c.Next()
	log.Debug().Msgf("Response body: %s", blw.body.String())
}
