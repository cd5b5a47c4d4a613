package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder appends every window read from the source to a 16-bit mono WAV
// file so a session can be replayed later.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *wav.Encoder
	path string
	n    int
}

// NewRecorder creates dir if needed and opens a WAV file named after started.
func NewRecorder(dir string, started time.Time) (*Recorder, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audio: create recording dir: %w", err)
	}
	path := filepath.Join(dir, started.Format("20060102150405")+".wav")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create recording: %w", err)
	}
	return &Recorder{
		file: f,
		enc:  wav.NewEncoder(f, SampleRate, 16, 1, 1),
		path: path,
	}, nil
}

// Path is the location of the recording on disk.
func (r *Recorder) Path() string { return r.path }

// Samples is the number of samples written so far.
func (r *Recorder) Samples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Write encodes samples, clamping them to [-1, 1].
func (r *Recorder) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return fmt.Errorf("audio: recorder closed")
	}
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := r.enc.Write(buf); err != nil {
		return fmt.Errorf("audio: write recording: %w", err)
	}
	r.n += len(samples)
	return nil
}

// Close finalises the WAV header and closes the file. It is safe to call more
// than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return nil
	}
	encErr := r.enc.Close()
	fileErr := r.file.Close()
	r.enc = nil
	r.file = nil
	if encErr != nil {
		return fmt.Errorf("audio: finalise recording: %w", encErr)
	}
	return fileErr
}
