package audio

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/dsp/fourier"
	"gopkg.in/yaml.v3"
)

// Extractor derives one frequency frame per output frame from PCM.
type Extractor interface {
	Extract(pcm []float32, sampleRate, fps, frames int) [][]byte
}

// FFTExtractor computes magnitude spectra over a Hann window centered on
// each frame time and folds them into Bins log-spaced bands.
type FFTExtractor struct {
	Bins   int
	Window int // samples, a power of two
}

func NewFFTExtractor() *FFTExtractor {
	return &FFTExtractor{Bins: 64, Window: 2048}
}

const floorDB = -60.0

func (e *FFTExtractor) Extract(pcm []float32, sampleRate, fps, frames int) [][]byte {
	n := e.Window
	fft := fourier.NewFFT(n)
	hann := make([]float64, n)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	edges := bandEdges(e.Bins, n/2)

	seq := make([]float64, n)
	var coeff []complex128
	out := make([][]byte, frames)
	for f := 0; f < frames; f++ {
		center := int(math.Round(float64(f) * float64(sampleRate) / float64(fps)))
		for i := range seq {
			j := center - n/2 + i
			if j >= 0 && j < len(pcm) {
				seq[i] = float64(pcm[j]) * hann[i]
			} else {
				seq[i] = 0
			}
		}
		coeff = fft.Coefficients(coeff, seq)

		frame := make([]byte, e.Bins)
		for b := 0; b < e.Bins; b++ {
			var peak float64
			for k := edges[b]; k < edges[b+1]; k++ {
				peak = math.Max(peak, cmplxAbs(coeff[k]))
			}
			// a full-scale sine under a Hann window peaks at n/4
			db := 20 * math.Log10(peak/(float64(n)/4)+1e-12)
			frame[b] = uint8(math.Round(clamp01((db-floorDB)/-floorDB) * 255))
		}
		out[f] = frame
	}
	return out
}

// bandEdges splits FFT bins 1..half into count log-spaced bands, each at
// least one bin wide. Band b covers [edges[b], edges[b+1]).
func bandEdges(count, half int) []int {
	edges := make([]int, count+1)
	edges[0] = 1
	for b := 1; b <= count; b++ {
		e := int(math.Round(math.Pow(float64(half), float64(b)/float64(count))))
		edges[b] = max(e, edges[b-1]+1)
	}
	for b := range edges {
		edges[b] = min(edges[b], half+1)
	}
	edges[count] = half + 1
	return edges
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// ReadEnvelope loads a precomputed envelope: a YAML or JSON list of frames,
// each a list of magnitudes 0-255.
func ReadEnvelope(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw [][]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse envelope %s: %w", path, err)
	}

	out := make([][]byte, len(raw))
	for i, frame := range raw {
		out[i] = make([]byte, len(frame))
		for j, v := range frame {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("envelope %s: frame %d bin %d out of range: %d", path, i, j, v)
			}
			out[i][j] = byte(v)
		}
	}
	return out, nil
}

// FitEnvelope pads or truncates env to exactly frames entries. Missing
// frames are silent.
func FitEnvelope(env [][]byte, frames int) [][]byte {
	if len(env) >= frames {
		return env[:frames]
	}
	bins := 0
	if len(env) > 0 {
		bins = len(env[0])
	}
	out := make([][]byte, frames)
	copy(out, env)
	for i := len(env); i < frames; i++ {
		out[i] = make([]byte, bins)
	}
	return out
}
