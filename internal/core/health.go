package core

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/e7canasta/motion-sensor/internal/metrics"
)

// HealthStatus represents the health state of the sensor
type HealthStatus struct {
	Status          string  `json:"status"` // "healthy", "degraded", "unhealthy"
	InstanceID      string  `json:"instance_id"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	Paused          bool    `json:"paused"`
	StreamConnected bool    `json:"stream_connected"`
	MQTTConnected   bool    `json:"mqtt_connected"`
	FramesAdded     uint64  `json:"frames_added"`
	Buffered        int     `json:"buffered_frames"`
	Capacity        int     `json:"buffer_capacity"`
	DelayFrames     int     `json:"delay_frames"`
	LastEnergy      float64 `json:"last_energy"`
}

// HealthCheck returns the current health status of the service. It
// reads thread-safe component stats plus the pipeline's cached
// extractor snapshot, never the extractor itself.
func (d *Daemon) HealthCheck() HealthStatus {
	d.mu.RLock()
	status := HealthStatus{
		Status:        "healthy",
		InstanceID:    d.cfg.InstanceID,
		UptimeSeconds: int64(time.Since(d.started).Seconds()),
		Paused:        d.isPaused,
		FramesAdded:   d.lastStats.FramesAdded,
		Buffered:      d.lastStats.Buffered,
		Capacity:      d.lastStats.Capacity,
		DelayFrames:   d.lastStats.DelayFrames,
		LastEnergy:    d.lastEnergy,
	}
	running := d.isRunning
	d.mu.RUnlock()

	if d.source != nil && running {
		status.StreamConnected = d.source.Stats().IsConnected
	}
	mqttConfigured := d.emitter != nil
	if mqttConfigured {
		status.MQTTConnected = d.emitter.Stats().Connected
	}

	if !running {
		status.Status = "unhealthy"
	} else if !status.StreamConnected || (mqttConfigured && !status.MQTTConnected) {
		status.Status = "degraded"
	}

	return status
}

// LivenessHandler serves /health. Process-alive check only.
func (d *Daemon) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "alive",
		"uptime": int64(time.Since(d.started).Seconds()),
	})
}

// ReadinessHandler serves /readiness with the full health report.
// Answers 503 while the pipeline cannot process frames.
func (d *Daemon) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	health := d.HealthCheck()

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}

// StartHealthServer exposes liveness, readiness and Prometheus metrics
// over HTTP. Returns once the listener goroutine is launched.
func (d *Daemon) StartHealthServer(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", d.LivenessHandler)
	mux.HandleFunc("/readiness", d.ReadinessHandler)
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("observability endpoints up",
		"port", port,
		"paths", "/health /readiness /metrics",
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}
