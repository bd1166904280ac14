package audio

import "math"

// PitchOptions configure YIN pitch tracking.
type PitchOptions struct {
	FrameLength int
	Hop         int
	// FMin and FMax bound the detectable f0 in Hz.
	FMin float64
	FMax float64
	// Threshold on the cumulative mean normalized difference below which a
	// frame is voiced.
	Threshold float64
}

// DefaultPitchOptions track C2 to C7 over 50 ms frames at 16 kHz.
func DefaultPitchOptions() PitchOptions {
	return PitchOptions{
		FrameLength: DefaultFrameLength,
		Hop:         DefaultHopLength,
		FMin:        65.41,
		FMax:        2093.0,
		Threshold:   0.1,
	}
}

// Pitch estimates f0 per centred frame with the YIN algorithm. Unvoiced
// frames get f0 0. The second result is the per-frame voicing probability,
// 1 minus the aperiodicity at the chosen lag.
func Pitch(x []float64, sampleRate int, opts PitchOptions) (f0, voicedProb []float64) {
	def := DefaultPitchOptions()
	if opts.FrameLength <= 0 {
		opts.FrameLength = def.FrameLength
	}
	if opts.Hop <= 0 {
		opts.Hop = def.Hop
	}
	if opts.FMin <= 0 {
		opts.FMin = def.FMin
	}
	if opts.FMax <= 0 {
		opts.FMax = def.FMax
	}
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}

	win := opts.FrameLength / 2
	sr := float64(sampleRate)
	minPeriod := max(1, int(math.Floor(sr/opts.FMax)))
	maxPeriod := min(int(math.Ceil(sr/opts.FMin)), opts.FrameLength-win-1)

	fs := frames(x, opts.FrameLength, opts.Hop, true)
	f0 = make([]float64, len(fs))
	voicedProb = make([]float64, len(fs))
	if maxPeriod <= minPeriod {
		return f0, voicedProb
	}
	cmnd := make([]float64, maxPeriod+2)
	for t, frame := range fs {
		cumulativeMeanNormalizedDifference(frame, win, maxPeriod+1, cmnd)
		tau, ok := pickLag(cmnd, minPeriod, maxPeriod, opts.Threshold)
		voicedProb[t] = math.Max(0, math.Min(1, 1-cmnd[tau]))
		if !ok {
			continue
		}
		f0[t] = sr / parabolicPeak(cmnd, tau)
	}
	return f0, voicedProb
}

// cumulativeMeanNormalizedDifference fills d[0..maxLag] for one frame.
func cumulativeMeanNormalizedDifference(frame []float64, win, maxLag int, d []float64) {
	d[0] = 1
	var running float64
	for tau := 1; tau <= maxLag; tau++ {
		var s float64
		for j := 0; j < win; j++ {
			diff := frame[j] - frame[j+tau]
			s += diff * diff
		}
		running += s
		if running == 0 {
			d[tau] = 1
			continue
		}
		d[tau] = s * float64(tau) / running
	}
}

// pickLag returns the first local minimum below threshold in
// [minPeriod, maxPeriod], or the global minimum and false when none is.
func pickLag(d []float64, minPeriod, maxPeriod int, threshold float64) (int, bool) {
	best := minPeriod
	for tau := minPeriod; tau <= maxPeriod; tau++ {
		if d[tau] < threshold {
			for tau+1 <= maxPeriod && d[tau+1] < d[tau] {
				tau++
			}
			return tau, true
		}
		if d[tau] < d[best] {
			best = tau
		}
	}
	return best, false
}

// parabolicPeak refines tau by fitting a parabola through its neighbours.
func parabolicPeak(d []float64, tau int) float64 {
	if tau <= 0 || tau+1 >= len(d) {
		return float64(tau)
	}
	a, b, c := d[tau-1], d[tau], d[tau+1]
	den := a - 2*b + c
	if den == 0 {
		return float64(tau)
	}
	shift := 0.5 * (a - c) / den
	if math.Abs(shift) > 1 {
		return float64(tau)
	}
	return float64(tau) + shift
}
