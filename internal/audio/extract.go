package audio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/speechassess/cefrgrade/internal/stats"
)

// FeatureRow is everything extracted from one recording.
type FeatureRow struct {
	Speaker     string
	Part        string
	File        string
	SampleRate  int
	Duration    float64
	Pitch       stats.Profile
	Energy      stats.Profile
	VoicedProbs []float64
}

// Columns merges the pitch and energy statistics into one set of columns.
func (r FeatureRow) Columns() ([]stats.Column, error) {
	return stats.Merge(r.Pitch, r.Energy)
}

// ParseName splits a recording name such as "0988973896-3-1-2022_1_12.wav"
// into speaker "0988973896" and part "3". Part is empty when absent.
func ParseName(path string) (speaker, part string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	fields := strings.Split(stem, "-")
	speaker = fields[0]
	if len(fields) > 1 {
		part = fields[1]
	}
	return speaker, part
}

// Extract reads a recording and computes its pitch and energy profiles.
// A non-empty part overrides the part parsed from the file name.
func Extract(path, part string, opts PitchOptions) (FeatureRow, error) {
	x, sr, err := ReadWAV(path)
	if err != nil {
		return FeatureRow{}, err
	}
	if sr <= 0 {
		return FeatureRow{}, fmt.Errorf("%s: invalid sample rate %d", path, sr)
	}
	speaker, parsedPart := ParseName(path)
	if part == "" {
		part = parsedPart
	}
	if opts.FrameLength <= 0 {
		opts.FrameLength = DefaultFrameLength
	}
	if opts.Hop <= 0 {
		opts.Hop = DefaultHopLength
	}

	f0, probs := Pitch(x, sr, opts)
	rms := RMS(x, opts.FrameLength, opts.Hop, true)
	logf(filepath.Base(path), "%d pitch frames, %d energy frames", len(f0), len(rms))

	return FeatureRow{
		Speaker:     speaker,
		Part:        part,
		File:        filepath.Base(path),
		SampleRate:  sr,
		Duration:    float64(len(x)) / float64(sr),
		Pitch:       stats.PitchProfile(f0),
		Energy:      stats.EnergyProfile(rms),
		VoicedProbs: probs,
	}, nil
}
