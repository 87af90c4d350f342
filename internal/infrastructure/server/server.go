package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	api "github.com/GriffinCanCode/framebridge/internal/api/http"
	"github.com/GriffinCanCode/framebridge/internal/api/middleware"
	"github.com/GriffinCanCode/framebridge/internal/bridge"
	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/framebridge/internal/logging"
	"github.com/GriffinCanCode/framebridge/internal/manifest"
	"github.com/GriffinCanCode/framebridge/internal/script"
	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/surface"
	"github.com/GriffinCanCode/framebridge/internal/window"
	"github.com/GriffinCanCode/framebridge/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and the host side of every bridged frame.
type Server struct {
	router   *gin.Engine
	loop     *window.Loop
	win      *window.Window
	doc      *surface.Document
	hosts    map[string]*bridge.Host
	runtimes []*script.Runtime
	ws       *ws.Handler
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// New builds the host window, one Host per manifest frame and the router.
// Hosts start listening immediately; their guests attach over /bridge.
func New(cfg *config.Config, m *manifest.Manifest, logger *logging.Logger, metrics *monitoring.Metrics) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	origin, err := utils.Origin(cfg.HostOrigin())
	if err != nil {
		return nil, fmt.Errorf("invalid host origin: %w", err)
	}
	defaultPolicy, err := effect.ParseUnknownPolicy(cfg.Bridge.UnknownPolicy)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing framebridge host",
		zap.String("origin", origin),
		zap.Int("frames", len(m.Frames)),
	)

	s := &Server{
		loop:    window.NewLoop(logger.Component("loop")),
		doc:     surface.NewDocument(nil),
		hosts:   make(map[string]*bridge.Host, len(m.Frames)),
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
	s.win = window.New(s.loop, origin, nil)

	for _, c := range m.AllContainers() {
		if _, err := s.doc.CreateContainer(c); err != nil {
			return nil, err
		}
	}

	routes := make(map[string]ws.Route, len(m.Frames))
	for _, f := range m.Frames {
		if err := s.addHost(f, defaultPolicy); err != nil {
			s.Close()
			return nil, fmt.Errorf("frame %q: %w", f.ID, err)
		}
		routes[f.ID] = ws.Route{ContainerID: f.Container, Origin: f.Origin}
	}

	wsOpts := ws.DefaultOptions()
	wsOpts.Rate = rate.Limit(cfg.Bridge.WSRate)
	wsOpts.Burst = cfg.Bridge.WSBurst
	wsOpts.Logger = logger.Component("ws")
	wsOpts.Metrics = metrics
	s.ws = ws.NewHandler(s.win, s.doc, routes, wsOpts)

	s.router = s.routes(m)

	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) addHost(f manifest.Frame, defaultPolicy effect.UnknownPolicy) error {
	policy := defaultPolicy
	if f.Unknown != "" {
		p, err := effect.ParseUnknownPolicy(f.Unknown)
		if err != nil {
			return err
		}
		policy = p
	}

	effects, err := s.effectsFor(f)
	if err != nil {
		return err
	}

	logger := s.logger.Component("bridge").With(zap.String("frame", f.ID))
	host, err := bridge.NewHost(s.win, s.doc, bridge.HostConfig{
		Target:  bridge.Target{ID: f.ID, Origin: f.Origin},
		Effects: effects,
	}, bridge.Options{
		Start:   bridge.StartOnConstruct,
		Unknown: policy,
		Logger:  logger,
		Metrics: s.metrics,
		OnError: func(err error) {
			logger.Warn("Bridge dispatch failed", zap.Error(err))
		},
	})
	if err != nil {
		return err
	}
	s.hosts[f.ID] = host
	return nil
}

// effectsFor loads the frame's script, or falls back to a single log effect.
func (s *Server) effectsFor(f manifest.Frame) (map[string]effect.Handler, error) {
	if f.Script == "" {
		return builtinEffects(s.logger.Component("guest").With(zap.String("frame", f.ID))), nil
	}

	source, err := os.ReadFile(f.Script)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	rt, err := script.New(script.Config{
		Timeout:          s.config.Script.Timeout,
		EnableConsole:    s.config.Script.Console,
		MaxCallStackSize: script.DefaultConfig().MaxCallStackSize,
	}, s.logger.Component("script").With(zap.String("frame", f.ID)), s.metrics)
	if err != nil {
		return nil, err
	}
	s.runtimes = append(s.runtimes, rt)

	effects, err := rt.Effects(context.Background(), string(source))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.Script, err)
	}
	return effects, nil
}

func builtinEffects(logger *zap.Logger) map[string]effect.Handler {
	return map[string]effect.Handler{
		"log": effect.HandlerFunc(func(ctx *effect.Context) {
			logger.Info("Guest log", zap.Any("args", ctx.Args))
		}),
	}
}

func (s *Server) routes(m *manifest.Manifest) *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracing.New("framebridge-host", s.logger.Component("trace"))))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(m.Origins()...)))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: s.config.RateLimit.RequestsPerSecond,
			Burst:             s.config.RateLimit.Burst,
		}))
	}

	handlers := api.NewHandlers(m, s.doc, s.hosts, s.metrics, s.logger.Component("http"))

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	router.GET("/frames", handlers.ListFrames)
	router.POST("/frames/:id/signals", handlers.SendSignal)

	router.GET("/bridge", s.ws.HandleConnection)

	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)

	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Host returns the host peer of frame id.
func (s *Server) Host(id string) (*bridge.Host, bool) {
	h, ok := s.hosts[id]
	return h, ok
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the event loop and serves HTTP on ln until ctx is done, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go s.loop.Run(loopCtx)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown.
	s.ws.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close destroys every Host and releases script runtimes.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	for _, h := range s.hosts {
		h.Destroy()
	}
	if s.ws != nil {
		s.ws.Close()
	}
	for _, rt := range s.runtimes {
		rt.Close()
	}

	s.logger.Sync()
	return nil
}
