package types

import (
	"encoding/json"
	"time"
)

// MotionEvent is the payload published for every scored extraction.
// Field names are part of the wire contract with downstream consumers.
type MotionEvent struct {
	InstanceID      string  `json:"instance_id"`
	Seq             uint64  `json:"seq"`
	TraceID         string  `json:"trace_id"`
	TimestampStr    string  `json:"ts"`
	Energy          float64 `json:"energy"`
	ChangedFraction float64 `json:"changed_fraction"`
	DelayFrames     int     `json:"delay_frames"`
	DelaySeconds    float64 `json:"delay_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

// ToJSON converts the event to JSON bytes for publishing
func (e *MotionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Stamp sets the wire timestamp from the frame capture time.
func (e *MotionEvent) Stamp(t time.Time) {
	e.TimestampStr = t.UTC().Format(time.RFC3339Nano)
}
