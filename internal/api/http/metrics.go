package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
)

// MetricsSnapshot is the JSON view of the bridge counters.
type MetricsSnapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	Signals   monitoring.Snapshot `json:"signals"`
	Summary   MetricsSummary      `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	Frames          int     `json:"frames"`
	ConnectedFrames int     `json:"connected_frames"`
	DropRate        float64 `json:"drop_rate"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// MetricsJSON returns the counters as JSON for dashboards that do not
// scrape Prometheus.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	snap := h.metrics.GetSnapshot()

	summary := MetricsSummary{
		Frames:        len(h.manifest.Frames),
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
	for _, f := range h.frames.Frames() {
		if f.Connected {
			summary.ConnectedFrames++
		}
	}
	if snap.Received > 0 {
		summary.DropRate = float64(snap.Dropped) / float64(snap.Received)
	}

	c.JSON(http.StatusOK, MetricsSnapshot{
		Timestamp: time.Now(),
		Signals:   snap,
		Summary:   summary,
	})
}
