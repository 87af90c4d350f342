package main

import (
	"context"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/framebridge/internal/bridge"
	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	bsignal "github.com/GriffinCanCode/framebridge/internal/bridge/signal"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/framebridge/internal/logging"
	"github.com/GriffinCanCode/framebridge/internal/script"
	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/window"
	"github.com/GriffinCanCode/framebridge/internal/ws"
)

// session is one connection to the host and the Guest bound to it.
type session struct {
	self    string
	frameID string
	ready   string
	effects map[string]effect.Handler
	opts    bridge.Options
	loop    *window.Loop
	logger  *zap.Logger
}

func main() {
	cfg := config.LoadOrDefault()

	hostURL := flag.String("host", cfg.Guest.HostURL, "Host bridge WebSocket URL")
	frameID := flag.String("frame", cfg.Guest.FrameID, "Frame id to attach as")
	origin := flag.String("origin", cfg.Guest.Origin, "This guest's origin")
	scriptPath := flag.String("script", cfg.Guest.Script, "JavaScript file defining the guest effects")
	ready := flag.String("ready", "", "Effect to invoke on the host after each connect")
	unknown := flag.String("unknown", cfg.Bridge.UnknownPolicy, "Unknown effect policy: report, drop or strict")
	reconnect := flag.Bool("reconnect", true, "Reconnect when the host goes away")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (colored logs, debug level)")
	flag.Parse()

	level := cfg.Logging.Level
	if *dev {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:       level,
		Development: *dev,
		Service:     "framebridge-guest",
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	self, err := utils.Origin(*origin)
	if err != nil {
		logger.Fatal("Invalid guest origin", zap.String("origin", *origin), zap.Error(err))
	}
	policy, err := effect.ParseUnknownPolicy(*unknown)
	if err != nil {
		logger.Fatal("Invalid unknown effect policy", zap.Error(err))
	}
	source, err := os.ReadFile(*scriptPath)
	if err != nil {
		logger.Fatal("Failed to read guest script", zap.String("path", *scriptPath), zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := monitoring.NewMetrics()
	rt, err := script.New(script.Config{
		Timeout:          cfg.Script.Timeout,
		EnableConsole:    cfg.Script.Console,
		MaxCallStackSize: script.DefaultConfig().MaxCallStackSize,
	}, logger.Component("script"), metrics)
	if err != nil {
		logger.Fatal("Failed to create script runtime", zap.Error(err))
	}
	defer rt.Close()

	effects, err := rt.Effects(ctx, string(source))
	if err != nil {
		logger.Fatal("Failed to load guest effects", zap.String("path", *scriptPath), zap.Error(err))
	}

	target, err := url.Parse(*hostURL)
	if err != nil {
		logger.Fatal("Invalid host URL", zap.String("url", *hostURL), zap.Error(err))
	}
	query := target.Query()
	query.Set("frame", *frameID)
	target.RawQuery = query.Encode()

	wsOpts := ws.DefaultOptions()
	wsOpts.Rate = rate.Limit(cfg.Bridge.WSRate)
	wsOpts.Burst = cfg.Bridge.WSBurst
	wsOpts.Logger = logger.Component("ws")
	wsOpts.Metrics = metrics

	breaker := resilience.New(resilience.Settings{
		OnStateChange: func(from, to resilience.State) {
			logger.Info("Host circuit changed", zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	redialer := ws.NewRedialer(target.String(), self, wsOpts, breaker)

	loop := window.NewLoop(logger.Component("loop"))
	go loop.Run(ctx)

	s := &session{
		self:    self,
		frameID: *frameID,
		ready:   *ready,
		effects: effects,
		opts: bridge.Options{
			Unknown: policy,
			Logger:  logger.Component("bridge"),
			Metrics: metrics,
			OnError: func(err error) {
				logger.Warn("Bridge dispatch failed", zap.Error(err))
			},
		},
		loop:   loop,
		logger: logger.Logger,
	}

	for {
		remote, err := redialer.Dial(ctx)
		if err != nil {
			break
		}
		s.run(ctx, remote)
		if ctx.Err() != nil || !*reconnect {
			break
		}
	}
	logger.Info("Guest stopped")
}

// run serves one connection until it ends.
func (s *session) run(ctx context.Context, remote *ws.Remote) {
	defer remote.Close()

	win := window.New(s.loop, s.self, remote)
	defer win.Close()

	guest, err := bridge.NewGuest(win, bridge.GuestConfig{
		ParentOrigin: remote.Origin(),
		Effects:      s.effects,
	}, s.opts)
	if err != nil {
		s.logger.Error("Failed to start guest", zap.Error(err))
		return
	}
	defer guest.Destroy()

	s.logger.Info("Guest attached",
		zap.String("frame", s.frameID),
		zap.String("host_origin", remote.Origin()),
		zap.String("origin", s.self),
		zap.String("conn_id", remote.ID().String()),
	)

	if s.ready != "" {
		if err := guest.InvokeHostEffect(bsignal.New(s.ready, map[string]any{"frame": s.frameID})); err != nil {
			s.logger.Warn("Failed to announce readiness", zap.Error(err))
		}
	}

	if err := remote.Pump(ctx, win, s.self); err != nil && ctx.Err() == nil {
		s.logger.Warn("Connection to host ended", zap.Error(err))
		return
	}
	s.logger.Info("Host connection closed")
}
