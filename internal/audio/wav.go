// Package audio reads speech recordings and computes the frame-level pitch
// and energy tracks summarized by the stats package.
package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// WAVE format tags accepted by ReadWAV. Extensible headers are assumed to
// carry integer PCM.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// ReadWAV decodes an integer PCM WAV file into mono samples in [-1, 1].
// Channels are averaged. IEEE float and compressed formats are rejected.
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: decode pcm: %w", path, err)
	}
	chans := int(d.NumChans)
	if chans < 1 {
		chans = 1
	}
	if f := d.WavAudioFormat; f != wavFormatPCM && f != wavFormatExtensible {
		return nil, 0, fmt.Errorf("%s: unsupported wav format %d (integer PCM only)", path, f)
	}
	depth := int(d.BitDepth)
	if depth == 0 {
		depth = buf.SourceBitDepth
	}
	if depth <= 0 || depth > 32 {
		return nil, 0, fmt.Errorf("%s: unsupported bit depth %d", path, depth)
	}

	scale := float64(int64(1) << (depth - 1))
	offset := 0.0
	if depth == 8 {
		// 8-bit PCM is unsigned
		offset = 128
	}

	n := len(buf.Data) / chans
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < chans; c++ {
			sum += (float64(buf.Data[i*chans+c]) - offset) / scale
		}
		out[i] = sum / float64(chans)
	}
	logf(path, "%d samples at %d Hz, %d channel(s), %d bit", n, d.SampleRate, chans, depth)
	return out, int(d.SampleRate), nil
}
