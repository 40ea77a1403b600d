package audio

import (
	"math"
)

const (
	nMels = 128
	amin  = 1e-10
	topDB = 80.0
)

// MFCC computes nMFCC cepstral coefficients per frame using 128 Slaney mel
// bands over 0..rate/2, a dB power scale clipped 80 dB below the peak and an
// orthonormal DCT-II. The result is indexed [coefficient][frame].
func MFCC(samples []float64, rate, nMFCC int) [][]float64 {
	if len(samples) == 0 || rate <= 0 || nMFCC <= 0 {
		return nil
	}
	fb := melFilterBank(rate, defaultNFFT, nMels, 0, float64(rate)/2)

	nFrames := frameCount(len(samples), defaultHop)
	melSpec := make([][]float64, nFrames) // [frame][mel]
	eachFrame(samples, defaultNFFT, defaultHop, func(t int, mag []float64) {
		row := make([]float64, nMels)
		for m, weights := range fb {
			sum := 0.0
			for k, w := range weights {
				if w != 0 {
					sum += w * mag[k] * mag[k]
				}
			}
			row[m] = sum
		}
		melSpec[t] = row
	})

	// power to dB, ref 1.0, clipped top_db below the global max
	peak := math.Inf(-1)
	for _, row := range melSpec {
		for m, v := range row {
			db := 10 * math.Log10(math.Max(amin, v))
			row[m] = db
			if db > peak {
				peak = db
			}
		}
	}
	floor := peak - topDB
	for _, row := range melSpec {
		for m, v := range row {
			if v < floor {
				row[m] = floor
			}
		}
	}

	if nMFCC > nMels {
		nMFCC = nMels
	}
	basis := dctBasis(nMFCC, nMels)
	out := make([][]float64, nMFCC)
	for c := range out {
		out[c] = make([]float64, nFrames)
		for t, row := range melSpec {
			sum := 0.0
			for m, v := range row {
				sum += basis[c][m] * v
			}
			out[c][t] = sum
		}
	}
	return out
}

// MeanMFCC averages each coefficient over time.
func MeanMFCC(samples []float64, rate, nMFCC int) []float64 {
	m := MFCC(samples, rate, nMFCC)
	out := make([]float64, len(m))
	for c, row := range m {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if len(row) > 0 {
			out[c] = sum / float64(len(row))
		}
	}
	return out
}

// dctBasis is the orthonormal DCT-II matrix, n rows of length size.
func dctBasis(n, size int) [][]float64 {
	out := make([][]float64, n)
	for k := 0; k < n; k++ {
		scale := math.Sqrt(2 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1 / float64(size))
		}
		row := make([]float64, size)
		for i := 0; i < size; i++ {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(size)))
		}
		out[k] = row
	}
	return out
}

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSP      = 200.0 / 3
	melMinLogHz = 1000.0
)

var (
	melMinLogMel = melMinLogHz / melFSP
	melLogStep   = math.Log(6.4) / 27
)

func hzToMel(f float64) float64 {
	if f >= melMinLogHz {
		return melMinLogMel + math.Log(f/melMinLogHz)/melLogStep
	}
	return f / melFSP
}

func melToHz(m float64) float64 {
	if m >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(m-melMinLogMel))
	}
	return m * melFSP
}

// melFilterBank builds area normalised triangular filters, [mel][bin].
func melFilterBank(rate, nfft, bands int, fmin, fmax float64) [][]float64 {
	nBins := nfft/2 + 1
	freqs := make([]float64, nBins)
	for k := range freqs {
		freqs[k] = binFrequency(k, rate, nfft)
	}

	lo, hi := hzToMel(fmin), hzToMel(fmax)
	pts := make([]float64, bands+2)
	for i := range pts {
		pts[i] = melToHz(lo + (hi-lo)*float64(i)/float64(bands+1))
	}

	fb := make([][]float64, bands)
	for m := 0; m < bands; m++ {
		left, center, right := pts[m], pts[m+1], pts[m+2]
		norm := 2 / (right - left)
		row := make([]float64, nBins)
		for k, f := range freqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			w := math.Min(lower, upper)
			if w > 0 {
				row[k] = w * norm
			}
		}
		fb[m] = row
	}
	return fb
}
