// Package indicators provides streaming statistics used by strategies.
package indicators

import "math"

// Window keeps the last n samples and reports their mean and population
// standard deviation.
type Window struct {
	period  int
	samples []float64
}

// NewWindow creates a rolling window over the given number of samples.
// Non-positive periods are treated as 1.
func NewWindow(period int) *Window {
	if period <= 0 {
		period = 1
	}
	return &Window{
		period:  period,
		samples: make([]float64, 0, period),
	}
}

// Update adds x, dropping the oldest sample once the window is full.
func (w *Window) Update(x float64) {
	if len(w.samples) == w.period {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.period-1]
	}
	w.samples = append(w.samples, x)
}

func (w *Window) Ready() bool {
	return len(w.samples) >= w.period
}

// Mean of the samples in the window, 0 until the window is full.
func (w *Window) Mean() float64 {
	if !w.Ready() {
		return 0
	}
	sum := 0.0
	for _, x := range w.samples {
		sum += x
	}
	return sum / float64(w.period)
}

// StdDev is the population standard deviation of the window, 0 until the
// window is full.
func (w *Window) StdDev() float64 {
	if !w.Ready() {
		return 0
	}
	mean := w.Mean()
	ss := 0.0
	for _, x := range w.samples {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(w.period))
}
