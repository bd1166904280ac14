package audio

import "math"

const (
	DefaultFrameLength = 800
	DefaultHopLength   = 160
)

// frames slices x into overlapping frames. When center is set, x is padded
// with frameLength/2 zeros on both sides so frame t is centred on sample
// t*hop.
func frames(x []float64, frameLength, hop int, center bool) [][]float64 {
	if center {
		pad := frameLength / 2
		padded := make([]float64, len(x)+2*pad)
		copy(padded[pad:], x)
		x = padded
	}
	if len(x) < frameLength {
		return nil
	}
	n := 1 + (len(x)-frameLength)/hop
	out := make([][]float64, n)
	for t := range out {
		out[t] = x[t*hop : t*hop+frameLength]
	}
	return out
}

// RMS returns the root-mean-square energy of every frame.
func RMS(x []float64, frameLength, hop int, center bool) []float64 {
	fs := frames(x, frameLength, hop, center)
	out := make([]float64, len(fs))
	for t, f := range fs {
		var sq float64
		for _, v := range f {
			sq += v * v
		}
		out[t] = math.Sqrt(sq / float64(len(f)))
	}
	return out
}
