package audio

// Span is a transcript segment's time range in seconds.
type Span struct {
	Start float64
	End   float64
}

const (
	minSegmentSamples = 512
	elbowRatio        = 0.7
)

// SegmentFeatures returns the mean MFCC vector of each span that covers
// more than 512 samples and ends inside the signal.
func SegmentFeatures(sig *Signal, spans []Span, nMFCC int) [][]float64 {
	var out [][]float64
	for _, sp := range spans {
		start := int(sp.Start * float64(sig.Rate))
		end := int(sp.End * float64(sig.Rate))
		if start < 0 {
			start = 0
		}
		if end-start <= minSegmentSamples || end > len(sig.Samples) {
			continue
		}
		out = append(out, MeanMFCC(sig.Samples[start:end], sig.Rate, nMFCC))
	}
	return out
}

// CountSpeakers estimates how many distinct voices appear across spans.
// It clusters per-segment MFCC means for k = 1..min(maxSpeakers, rows) and
// moves to a larger k only while the negated inertia beats 0.7 times the
// best score so far. An empty signal or fewer than two usable segments
// yields 1.
func CountSpeakers(sig *Signal, spans []Span, maxSpeakers, nMFCC int) (int, error) {
	if sig == nil || len(sig.Samples) == 0 {
		return 1, nil
	}
	feats := SegmentFeatures(sig, spans, nMFCC)
	if len(feats) < 2 {
		return 1, nil
	}

	maxK := maxSpeakers
	if len(feats) < maxK {
		maxK = len(feats)
	}
	if maxK < 1 {
		maxK = 1
	}

	inertias := make([]float64, 0, maxK)
	for k := 1; k <= maxK; k++ {
		res, err := KMeans(feats, k, KMeansOptions{Seed: 0, NInit: 10})
		if err != nil {
			return 0, err
		}
		inertias = append(inertias, res.Inertia)
	}
	return pickK(inertias), nil
}

// pickK walks inertias for k = 1, 2, ... and keeps the last k whose
// negated inertia beat 0.7 times the best score seen.
func pickK(inertias []float64) int {
	best, num := 0.0, 1
	for i, in := range inertias {
		score := -in
		if i == 0 || score > best*elbowRatio {
			best, num = score, i+1
		}
	}
	return num
}
