// Package audio does the local signal work behind the transcription page:
// decoding, MFCC extraction, speaker counting, pitch based voice
// classification and waveform/spectrogram data for display.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrNotWAV    = errors.New("not a PCM WAV file")
	ErrNotMono16 = errors.New("audio file must be mono 16-bit WAV")
)

// Signal is mono audio scaled to [-1, 1] at its native sample rate.
type Signal struct {
	Samples []float64
	Rate    int
}

func (s *Signal) Duration() time.Duration {
	if s == nil || s.Rate == 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.Rate) * float64(time.Second))
}

// Load decodes a PCM WAV file, averaging channels down to mono.
func Load(path string) (*Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	chans := buf.Format.NumChannels
	if chans < 1 {
		chans = 1
	}
	depth := int(d.BitDepth)
	scale := math.Pow(2, float64(depth-1))
	offset := 0.0
	if depth == 8 {
		// 8-bit PCM is unsigned
		offset = 128
	}

	frames := len(buf.Data) / chans
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < chans; c++ {
			sum += (float64(buf.Data[i*chans+c]) - offset) / scale
		}
		out[i] = sum / float64(chans)
	}
	return &Signal{Samples: out, Rate: buf.Format.SampleRate}, nil
}

// CheckMono16 rejects anything but single channel 16-bit PCM WAV.
func CheckMono16(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return ErrNotMono16
	}
	if d.NumChans != 1 || d.BitDepth != 16 {
		return ErrNotMono16
	}
	return nil
}

// WriteWAV stores samples as 16-bit mono PCM.
func WriteWAV(path string, samples []float64, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * 32767))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// IsWAV reports whether path starts with a readable PCM WAV header.
func IsWAV(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return wav.NewDecoder(f).IsValidFile()
}
