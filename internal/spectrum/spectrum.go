package spectrum

import (
	"context"
	"fmt"
	"math/cmplx"
	"time"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// DefaultFFTSize matches the bin layout the beat categories are tuned for
	DefaultFFTSize = 512
	// DefaultHopSize gives ~11.6ms between frames at 44.1kHz
	DefaultHopSize = 512
	// DefaultSampleRate is the analysis rate
	DefaultSampleRate = 44100
)

// FrameFunc receives one magnitude spectrum and the time of its first sample.
// mags is reused by the analyzer and only valid for the duration of the call.
type FrameFunc func(mags []float64, at time.Duration) error

// Analyzer slices mono PCM into Hann-windowed frames and computes their
// magnitude spectrum. It is not safe for concurrent use.
type Analyzer struct {
	size       int
	hop        int
	sampleRate int

	fft    *fourier.FFT
	win    []float64
	buf    []float64
	coeffs []complex128
	mags   []float64
}

// New creates an analyzer
func New(fftSize, hopSize, sampleRate int) (*Analyzer, error) {
	if fftSize < 2 {
		return nil, fmt.Errorf("fft size must be at least 2, got %d", fftSize)
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive, got %d", hopSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	return &Analyzer{
		size:       fftSize,
		hop:        hopSize,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(fftSize),
		win:        window.Hann(fftSize),
		buf:        make([]float64, fftSize),
		coeffs:     make([]complex128, fftSize/2+1),
		mags:       make([]float64, fftSize/2),
	}, nil
}

// Bins is the number of magnitudes per frame
func (a *Analyzer) Bins() int {
	return a.size / 2
}

// BinFrequency returns the center frequency of bin in Hz
func (a *Analyzer) BinFrequency(bin int) float64 {
	return float64(bin) * float64(a.sampleRate) / float64(a.size)
}

// FrameCount returns how many frames Frames will produce for n samples
func (a *Analyzer) FrameCount(n int) int {
	if n <= 0 {
		return 0
	}
	if n <= a.size {
		return 1
	}
	return 1 + (n-a.size)/a.hop
}

// FrameTime returns the timestamp of frame i
func (a *Analyzer) FrameTime(i int) time.Duration {
	return time.Duration(i*a.hop) * time.Second / time.Duration(a.sampleRate)
}

// Magnitudes windows frame and returns |X[k]| for k in [0, size/2).
// Short frames are zero padded.
func (a *Analyzer) Magnitudes(frame []float64) []float64 {
	for k := range a.buf {
		if k < len(frame) {
			a.buf[k] = frame[k] * a.win[k]
		} else {
			a.buf[k] = 0
		}
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.buf)
	for k := range a.mags {
		a.mags[k] = cmplx.Abs(a.coeffs[k])
	}
	return a.mags
}

// Frames walks samples frame by frame, calling fn for each spectrum in order.
// It stops early if fn returns an error or ctx is cancelled.
func (a *Analyzer) Frames(ctx context.Context, samples []float64, fn FrameFunc) (int, error) {
	count := a.FrameCount(len(samples))
	for i := 0; i < count; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return i, err
			}
		}

		start := i * a.hop
		end := min(start+a.size, len(samples))
		mags := a.Magnitudes(samples[start:end])
		if err := fn(mags, a.FrameTime(i)); err != nil {
			return i, err
		}
	}
	return count, nil
}
