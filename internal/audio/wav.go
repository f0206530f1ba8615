package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// SilenceThresholdDBFS is the RMS level at or below which a clip counts as near silent.
const SilenceThresholdDBFS = -65.0

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

// Info summarises a WAV file for diagnostics.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    int64
	Duration   time.Duration
	RMSdBFS    float64
	PeakdBFS   float64
	Silent     bool
}

// Inspect decodes the PCM data at path and measures its level.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Info{}, ErrInvalidWAV
	}
	if dec.WavAudioFormat != 1 {
		return Info{}, ErrUnsupportedWAV
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return Info{}, ErrUnsupportedWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	info := Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   bitDepth,
		Samples:    int64(len(buf.Data)),
	}

	if info.SampleRate > 0 && info.Channels > 0 {
		frames := info.Samples / int64(info.Channels)
		info.Duration = time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
	}

	peak, sumSquares := measureSamples(buf.Data, bitDepth)
	if info.Samples == 0 || peak == 0 {
		info.RMSdBFS = math.Inf(-1)
		info.PeakdBFS = math.Inf(-1)
		info.Silent = true
		return info, nil
	}

	rms := math.Sqrt(sumSquares / float64(info.Samples))
	info.RMSdBFS = amplitudeToDBFS(rms)
	info.PeakdBFS = amplitudeToDBFS(peak)
	info.Silent = info.RMSdBFS <= SilenceThresholdDBFS && info.PeakdBFS <= SilenceThresholdDBFS+6
	return info, nil
}

// measureSamples normalises integer samples to [-1, 1] before measuring.
func measureSamples(data []int, bitDepth int) (peak float64, sumSquares float64) {
	scale := float64(int64(1) << (bitDepth - 1))
	for _, s := range data {
		value := float64(s) / scale
		if bitDepth == 8 {
			// go-audio keeps 8-bit samples unsigned.
			value = (float64(s) - 128.0) / 128.0
		}

		abs := math.Abs(value)
		if abs > peak {
			peak = abs
		}
		sumSquares += value * value
	}
	return peak, sumSquares
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
