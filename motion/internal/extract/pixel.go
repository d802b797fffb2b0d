package extract

import "math"

// Luma weights for reducing a per-channel difference to one gray value.
// Integer approximation of the Rec. 601 weights, summing to 256 so the
// reduction is a single shift.
const (
	lumaR = 77
	lumaG = 150
	lumaB = 29
)

// grayDiff reduces a per-channel absolute difference to a single 8-bit
// magnitude.
func grayDiff(dr, dg, db uint8) uint8 {
	return uint8((lumaR*int(dr) + lumaG*int(dg) + lumaB*int(db)) >> 8)
}

// absDiff returns |a-b| without leaving uint8 range.
func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// clampU8 saturates v to [0, 255].
func clampU8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// blendLUT precomputes round(i*alpha) for every 8-bit highlight magnitude
// so the per-pixel loop stays in integer math. Built once per Extractor;
// alpha is fixed at construction.
func blendLUT(alpha float64) (lut [256]uint8) {
	for i := range lut {
		lut[i] = uint8(math.Round(float64(i) * alpha))
	}
	return lut
}

// extractPixels runs the motion pipeline over current and delayed, writing
// the composite into out. The three frames must share dimensions; callers
// guarantee it.
//
// Per pixel: the delayed sample is inverted and averaged with the current
// one, rounding half up, which lands static content on mid-gray. The
// absolute per-channel difference is reduced to gray and thresholded into
// a binary mask, and the masked difference is layered on top of the
// backdrop, scaled through lut and saturated to [0, 255].
func extractPixels(out, current, delayed *Frame, threshold uint8, lut *[256]uint8) {
	cur, del, dst := current.Pix, delayed.Pix, out.Pix
	for i := 0; i < len(cur); i += Channels {
		cr, cg, cb := cur[i], cur[i+1], cur[i+2]
		dr, dg, db := del[i], del[i+1], del[i+2]

		xr := absDiff(cr, dr)
		xg := absDiff(cg, dg)
		xb := absDiff(cb, db)

		br := (int(cr) + int(255-dr) + 1) >> 1
		bg := (int(cg) + int(255-dg) + 1) >> 1
		bb := (int(cb) + int(255-db) + 1) >> 1

		if grayDiff(xr, xg, xb) > threshold {
			br += int(lut[xr])
			bg += int(lut[xg])
			bb += int(lut[xb])
		}

		dst[i] = clampU8(br)
		dst[i+1] = clampU8(bg)
		dst[i+2] = clampU8(bb)
	}
}
