// Package window owns the analysis window assembly and the slice of audio
// carried from one window into the next.
package window

// Buffer keeps the trailing samples of the last window. It is the only owner
// of the retained slice; callers receive copies.
type Buffer struct {
	keep     int
	retained []float32
}

// New returns a Buffer that retains at most keep samples between windows.
// keep <= 0 disables carry-over.
func New(keep int) *Buffer {
	if keep < 0 {
		keep = 0
	}
	return &Buffer{keep: keep, retained: make([]float32, 0, keep)}
}

// Keep is the configured retention bound in samples.
func (b *Buffer) Keep() int { return b.keep }

// Prepare returns a new slice holding the retained samples followed by
// samples.
func (b *Buffer) Prepare(samples []float32) []float32 {
	out := make([]float32, 0, len(b.retained)+len(samples))
	out = append(out, b.retained...)
	return append(out, samples...)
}

// Update replaces the retained samples with the tail of window.
func (b *Buffer) Update(window []float32) {
	n := b.keep
	if n > len(window) {
		n = len(window)
	}
	b.retained = append(b.retained[:0], window[len(window)-n:]...)
}

// Retained returns a copy of the samples that will prefix the next window.
func (b *Buffer) Retained() []float32 {
	return append([]float32(nil), b.retained...)
}

// Len is the number of retained samples.
func (b *Buffer) Len() int { return len(b.retained) }

// Reset drops all retained samples.
func (b *Buffer) Reset() { b.retained = b.retained[:0] }
