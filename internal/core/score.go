package core

import "github.com/e7canasta/motion-sensor/motion"

// Scoring constants. Energy normalizes against the widest possible
// deviation from the neutral backdrop; the changed cutoff is roughly
// what a viewer would notice on the composited frame.
const (
	neutralGray   = 128
	maxDeviation  = 128.0
	changedCutoff = 12
)

// scoreMotion summarizes a composited motion frame. Energy is the mean
// absolute sample deviation from neutral gray, normalized to [0, 1].
// The changed fraction is the share of pixels with any channel past
// the cutoff.
func scoreMotion(f *motion.Frame) (energy, changedFraction float64) {
	if f == nil || len(f.Pix) == 0 {
		return 0, 0
	}

	var devSum uint64
	changed := 0

	for i := 0; i < len(f.Pix); i += motion.Channels {
		pixelChanged := false
		for c := 0; c < motion.Channels; c++ {
			dev := int(f.Pix[i+c]) - neutralGray
			if dev < 0 {
				dev = -dev
			}
			devSum += uint64(dev)
			if dev > changedCutoff {
				pixelChanged = true
			}
		}
		if pixelChanged {
			changed++
		}
	}

	samples := len(f.Pix)
	energy = float64(devSum) / float64(samples) / maxDeviation
	changedFraction = float64(changed) / float64(samples/motion.Channels)
	return energy, changedFraction
}
