package audio

import "math"

type Gender string

const (
	GenderMale         Gender = "Male"
	GenderFemale       Gender = "Female"
	GenderUndetermined Gender = "Undetermined"
	GenderUnknown      Gender = "Unknown"
)

const (
	pitchFMin      = 150.0
	pitchFMax      = 4000.0
	pitchThreshold = 0.1

	maleBelow   = 165.0
	femaleAbove = 180.0
)

// Pitches tracks spectral peaks between 150 Hz and 4 kHz with parabolic
// interpolation, keeping bins above 10% of the frame maximum that are
// local maxima along frequency.
func Pitches(sig *Signal) []float64 {
	if sig == nil || len(sig.Samples) == 0 || sig.Rate <= 0 {
		return nil
	}
	var out []float64
	eachFrame(sig.Samples, defaultNFFT, defaultHop, func(_ int, mag []float64) {
		peak := 0.0
		for _, v := range mag {
			if v > peak {
				peak = v
			}
		}
		ref := pitchThreshold * peak
		gated := func(k int) float64 {
			if mag[k] > ref {
				return mag[k]
			}
			return 0
		}

		for k := 1; k < len(mag)-1; k++ {
			f := binFrequency(k, sig.Rate, defaultNFFT)
			if f < pitchFMin || f >= pitchFMax {
				continue
			}
			v := gated(k)
			if v == 0 || v <= gated(k-1) || v < gated(k+1) {
				continue
			}
			avg := 0.5 * (mag[k+1] - mag[k-1])
			den := 2*mag[k] - mag[k+1] - mag[k-1]
			shift := 0.0
			if math.Abs(den) > 1e-12 {
				shift = avg / den
			}
			if mag[k]+0.5*avg*shift > 0 {
				out = append(out, (float64(k)+shift)*float64(sig.Rate)/float64(defaultNFFT))
			}
		}
	})
	return out
}

// EstimateGender classifies the mean tracked pitch: below 165 Hz male,
// above 180 Hz female, in between undetermined. No pitch at all is
// unknown.
func EstimateGender(sig *Signal) (Gender, float64) {
	p := Pitches(sig)
	if len(p) == 0 {
		return GenderUnknown, 0
	}
	sum := 0.0
	for _, v := range p {
		sum += v
	}
	return ClassifyPitch(sum / float64(len(p))), sum / float64(len(p))
}

func ClassifyPitch(mean float64) Gender {
	switch {
	case mean < maleBelow:
		return GenderMale
	case mean > femaleAbove:
		return GenderFemale
	default:
		return GenderUndetermined
	}
}
