package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/surface"
	"github.com/GriffinCanCode/framebridge/internal/window"
)

// Route is where a remote frame is placed and which origin may connect as it.
type Route struct {
	ContainerID string
	Origin      string
}

// Attacher places remote content windows into a document.
// *surface.Document implements it.
type Attacher interface {
	Attach(spec surface.FrameSpec, content window.Endpoint) (*surface.Element, error)
	RemoveIf(id string, content window.Endpoint) bool
}

// Handler accepts guest connections and attaches each one as the content
// window of its frame.
type Handler struct {
	win      *window.Window
	doc      Attacher
	routes   map[string]Route
	opts     Options
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	remotes map[*Remote]struct{}
}

// NewHandler creates a handler serving guests of win. routes maps frame id
// to its placement and origin.
func NewHandler(win *window.Window, doc Attacher, routes map[string]Route, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Handler{
		win:     win,
		doc:     doc,
		routes:  make(map[string]Route, len(routes)),
		opts:    opts,
		logger:  logger,
		remotes: make(map[*Remote]struct{}),
	}
	for frameID, route := range routes {
		if origin, err := utils.Origin(route.Origin); err == nil {
			route.Origin = origin
		}
		h.routes[frameID] = route
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin admits only the origin registered for the requested frame.
func (h *Handler) checkOrigin(r *http.Request) bool {
	route, ok := h.routes[r.URL.Query().Get("frame")]
	if !ok {
		return false
	}
	origin, err := utils.Origin(r.Header.Get("Origin"))
	return err == nil && origin == route.Origin
}

// HandleConnection serves GET /bridge?frame=<id>. It blocks until the
// connection closes.
func (h *Handler) HandleConnection(c *gin.Context) {
	frameID := c.Query("frame")
	route, ok := h.routes[frameID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown frame"})
		return
	}
	if container := c.Query("container"); container != "" && container != route.ContainerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "container does not match frame"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.String("frame", frameID),
			zap.String("origin", c.GetHeader("Origin")),
			zap.Error(err),
		)
		return
	}

	opts := h.opts
	opts.Logger = h.logger.With(zap.String("frame", frameID))
	remote := NewRemote(conn, route.Origin, opts)
	h.track(remote, true)
	defer h.track(remote, false)

	if _, err := h.doc.Attach(surface.FrameSpec{ContainerID: route.ContainerID, ID: frameID}, remote); err != nil {
		h.logger.Error("Failed to attach frame", zap.String("frame", frameID), zap.Error(err))
		remote.Close()
		return
	}
	h.logger.Info("Guest connected", zap.String("frame", frameID), zap.String("conn_id", remote.ID().String()))

	err = remote.Pump(c.Request.Context(), h.win, h.win.Origin())
	h.doc.RemoveIf(frameID, remote)
	if err != nil {
		h.logger.Warn("Guest connection ended", zap.String("frame", frameID), zap.Error(err))
		return
	}
	h.logger.Info("Guest disconnected", zap.String("frame", frameID))
}

// Close closes every open connection.
func (h *Handler) Close() error {
	h.mu.Lock()
	remotes := make([]*Remote, 0, len(h.remotes))
	for r := range h.remotes {
		remotes = append(remotes, r)
	}
	h.mu.Unlock()

	for _, r := range remotes {
		r.Close()
	}
	return nil
}

func (h *Handler) track(r *Remote, open bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if open {
		h.remotes[r] = struct{}{}
	} else {
		delete(h.remotes, r)
	}
}
