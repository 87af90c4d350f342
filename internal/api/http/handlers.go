package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framebridge/internal/bridge"
	"github.com/GriffinCanCode/framebridge/internal/bridge/signal"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/framebridge/internal/manifest"
	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/surface"
)

const version = "0.1.0"

// FrameLister reports the frames currently placed in the host document.
type FrameLister interface {
	Frames() []surface.FrameInfo
}

// Handlers contains all HTTP handlers
type Handlers struct {
	manifest *manifest.Manifest
	frames   FrameLister
	hosts    map[string]*bridge.Host
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	started  time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(
	m *manifest.Manifest,
	frames FrameLister,
	hosts map[string]*bridge.Host,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		manifest: m,
		frames:   frames,
		hosts:    hosts,
		metrics:  metrics,
		logger:   logger,
		started:  time.Now(),
	}
}

// FrameStatus joins a manifest frame with its live state.
type FrameStatus struct {
	ID        string   `json:"id"`
	Container string   `json:"container"`
	Origin    string   `json:"origin"`
	Src       string   `json:"src"`
	Classes   []string `json:"classes,omitempty"`
	State     string   `json:"state"`
	Connected bool     `json:"connected"`
}

// Root handles the basic liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "framebridge",
		"version": version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	connected := 0
	for _, f := range h.frames.Frames() {
		if f.Connected {
			connected++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"frames":         len(h.manifest.Frames),
		"connected":      connected,
		"uptime_seconds": time.Since(h.started).Seconds(),
	})
}

// ListFrames lists every manifest frame with its host state and connection.
func (h *Handlers) ListFrames(c *gin.Context) {
	live := make(map[string]surface.FrameInfo)
	for _, f := range h.frames.Frames() {
		live[f.ID] = f
	}

	frames := make([]FrameStatus, 0, len(h.manifest.Frames))
	for _, f := range h.manifest.Frames {
		status := FrameStatus{
			ID:        f.ID,
			Container: f.Container,
			Origin:    f.Origin,
			Src:       f.Src,
			Classes:   f.Classes,
			Connected: live[f.ID].Connected,
		}
		if host, ok := h.hosts[f.ID]; ok {
			status.State = host.State().String()
		}
		frames = append(frames, status)
	}

	c.JSON(http.StatusOK, gin.H{"frames": frames})
}

// SendSignal sends the request body, a {name, args} signal, to the guest of
// frame :id.
func (h *Handlers) SendSignal(c *gin.Context) {
	frameID := c.Param("id")
	if err := utils.ValidateID(frameID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	host, ok := h.hosts[frameID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if err := utils.ValidateSize(body, utils.MaxSignalSize); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}

	sig, err := signal.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := host.InvokeGuestEffect(sig); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, bridge.ErrDestroyed) {
			status = http.StatusGone
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	h.logger.Debug("Signal accepted for frame", append(tracing.Fields(c.Request.Context()),
		zap.String("frame", frameID),
		zap.String("effect", sig.Name),
	)...)
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"frame":   frameID,
		"effect":  sig.Name,
	})
}
