package audio

import "math"

type Envelope struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Visual is what the transcription page plots: a min/max waveform
// envelope and a dB spectrogram pooled down to a fixed grid.
type Visual struct {
	SampleRate  int         `json:"sample_rate"`
	Duration    float64     `json:"duration"`
	Waveform    []Envelope  `json:"waveform"`
	Spectrogram [][]float64 `json:"spectrogram"` // [row=frequency][col=time]
	MinDB       float64     `json:"min_db"`
	MaxDB       float64     `json:"max_db"`
}

// Visualize builds plot data with the given waveform width and
// spectrogram grid size.
func Visualize(sig *Signal, width, rows, cols int) *Visual {
	v := &Visual{}
	if sig == nil || len(sig.Samples) == 0 {
		return v
	}
	v.SampleRate = sig.Rate
	v.Duration = sig.Duration().Seconds()
	v.Waveform = envelope(sig.Samples, width)
	v.Spectrogram, v.MinDB, v.MaxDB = spectrogram(sig.Samples, rows, cols)
	return v
}

func envelope(samples []float64, width int) []Envelope {
	if width <= 0 {
		width = 800
	}
	if width > len(samples) {
		width = len(samples)
	}
	out := make([]Envelope, width)
	step := float64(len(samples)) / float64(width)
	for i := range out {
		lo, hi := int(float64(i)*step), int(float64(i+1)*step)
		if hi <= lo {
			hi = lo + 1
		}
		e := Envelope{Min: samples[lo], Max: samples[lo]}
		for _, s := range samples[lo:hi] {
			e.Min = math.Min(e.Min, s)
			e.Max = math.Max(e.Max, s)
		}
		out[i] = e
	}
	return out
}

// spectrogram max-pools STFT magnitudes into rows x cols, then converts to
// dB relative to the loudest cell, floored 80 dB down.
func spectrogram(samples []float64, rows, cols int) ([][]float64, float64, float64) {
	if rows <= 0 {
		rows = 128
	}
	if cols <= 0 {
		cols = 400
	}
	nBins := defaultNFFT/2 + 1
	nFrames := frameCount(len(samples), defaultHop)
	if cols > nFrames {
		cols = nFrames
	}
	if rows > nBins {
		rows = nBins
	}

	grid := make([][]float64, rows)
	for r := range grid {
		grid[r] = make([]float64, cols)
	}
	eachFrame(samples, defaultNFFT, defaultHop, func(t int, mag []float64) {
		c := t * cols / nFrames
		for k, m := range mag {
			r := k * rows / nBins
			if m > grid[r][c] {
				grid[r][c] = m
			}
		}
	})

	ref := 0.0
	for _, row := range grid {
		for _, m := range row {
			ref = math.Max(ref, m)
		}
	}
	if ref == 0 {
		ref = 1
	}
	minDB, maxDB := math.Inf(1), math.Inf(-1)
	for _, row := range grid {
		for c, m := range row {
			db := 20 * math.Log10(math.Max(1e-5, m)/ref)
			if db < -topDB {
				db = -topDB
			}
			row[c] = db
			minDB = math.Min(minDB, db)
			maxDB = math.Max(maxDB, db)
		}
	}
	return grid, minDB, maxDB
}
