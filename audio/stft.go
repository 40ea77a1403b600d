package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	defaultNFFT = 2048
	defaultHop  = 512
)

// frameCount is the number of centred frames for n samples.
func frameCount(n, hop int) int {
	return 1 + n/hop
}

// hann returns a periodic Hann window.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// eachFrame runs a centred, zero padded STFT and hands every frame's
// magnitude spectrum (nfft/2+1 bins) to fn. The slice is reused between
// calls.
func eachFrame(samples []float64, nfft, hop int, fn func(t int, mag []float64)) {
	fft := fourier.NewFFT(nfft)
	win := hann(nfft)
	frame := make([]float64, nfft)
	coeffs := make([]complex128, nfft/2+1)
	mag := make([]float64, nfft/2+1)
	pad := nfft / 2

	nFrames := frameCount(len(samples), hop)
	for t := 0; t < nFrames; t++ {
		start := t*hop - pad
		for i := 0; i < nfft; i++ {
			j := start + i
			if j < 0 || j >= len(samples) {
				frame[i] = 0
				continue
			}
			frame[i] = samples[j] * win[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			mag[k] = cmplx.Abs(c)
		}
		fn(t, mag)
	}
}

func binFrequency(k, rate, nfft int) float64 {
	return float64(k) * float64(rate) / float64(nfft)
}
