package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motion_frames_ingested_total",
		Help: "Total number of frames accepted into the delay window",
	})

	FramesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motion_frames_rejected_total",
		Help: "Total number of frames rejected (empty or mismatched dimensions)",
	})

	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_extractions_total",
		Help: "Total number of extraction attempts, by result",
	}, []string{"result"})

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "motion_extraction_duration_seconds",
		Help:    "Duration of a single blend-and-diff extraction",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	BufferOccupancy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "motion_buffer_occupancy_frames",
		Help: "Frames currently held in the delay window",
	})

	BufferCapacity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "motion_buffer_capacity_frames",
		Help: "Configured capacity of the delay window",
	})

	DelayFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "motion_delay_frames",
		Help: "Current delay between compared frames",
	})

	MotionEnergy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "motion_energy",
		Help: "Energy of the last extraction, mean deviation from neutral gray in [0,1]",
	})

	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motion_events_published_total",
		Help: "Total number of motion events published to MQTT",
	})

	StreamFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motion_stream_frames_dropped_total",
		Help: "Total number of source frames dropped before ingestion",
	})
)

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
