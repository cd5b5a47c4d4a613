package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/obiente/translate/streamrt/internal/config"
)

// WAVStreamWindowSamples is the fixed read size of the wav-stream source:
// ten seconds of audio, independent of the configured step.
const WAVStreamWindowSamples = 10 * SampleRate

// ErrEndOfStream reports that the source was exhausted at a window boundary.
var ErrEndOfStream = errors.New("audio: end of stream")

// ReadError reports a read that could not produce a full window. Truncated
// reads wrap io.ErrUnexpectedEOF; other failures wrap the underlying error.
type ReadError struct {
	Got  int // bytes read before the failure
	Want int // bytes required for a full window
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("audio: read %d of %d bytes: %v", e.Got, e.Want, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Truncated reports whether the stream ended part way through a window.
func (e *ReadError) Truncated() bool { return errors.Is(e.Err, io.ErrUnexpectedEOF) }

// Source produces successive windows of mono float32 samples at SampleRate.
type Source interface {
	// NextWindow returns the next window of up to n samples. It returns
	// ErrEndOfStream once no more audio is available.
	NextWindow(n int) ([]float32, error)
}

// NewSource selects the source variant for mode. The wav-file mode needs a
// seekable reader.
func NewSource(mode string, r io.Reader) (Source, error) {
	switch mode {
	case config.InputRaw, "":
		return NewRawSource(r), nil
	case config.InputWAVStream:
		return NewWAVStreamSource(r), nil
	case config.InputWAVFile:
		rs, ok := r.(io.ReadSeeker)
		if !ok {
			return nil, fmt.Errorf("audio: input mode %q requires a seekable file", mode)
		}
		return NewWAVFileSource(rs)
	default:
		return nil, fmt.Errorf("audio: unknown input mode %q", mode)
	}
}

// readFull fills buf, mapping a clean end at zero bytes to ErrEndOfStream and
// every other shortfall to a *ReadError.
func readFull(r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && n == 0:
		return ErrEndOfStream
	default:
		return &ReadError{Got: n, Want: len(buf), Err: err}
	}
}

// RawSource reads little-endian float32 samples straight from the stream.
type RawSource struct {
	r   io.Reader
	buf []byte
}

// NewRawSource returns a Source over a raw float32 stream.
func NewRawSource(r io.Reader) *RawSource {
	return &RawSource{r: r}
}

// NextWindow reads exactly n samples. A partially filled window is discarded.
func (s *RawSource) NextWindow(n int) ([]float32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("audio: window size must be > 0, got %d", n)
	}
	if cap(s.buf) < n*4 {
		s.buf = make([]byte, n*4)
	}
	buf := s.buf[:n*4]
	if err := readFull(s.r, buf); err != nil {
		return nil, err
	}
	return DecodeFloat32LE(buf)
}

// WAVStreamSource reads a streamed PCM16 WAV container: the 44-byte header is
// skipped once, then every window is WAVStreamWindowSamples long.
type WAVStreamSource struct {
	r             io.Reader
	headerSkipped bool
	buf           []byte
}

// NewWAVStreamSource returns a Source over a streamed WAV container.
func NewWAVStreamSource(r io.Reader) *WAVStreamSource {
	return &WAVStreamSource{r: r}
}

// NextWindow ignores n and always reads ten seconds of audio.
func (s *WAVStreamSource) NextWindow(int) ([]float32, error) {
	if !s.headerSkipped {
		header := make([]byte, WAVHeaderSize)
		if err := readFull(s.r, header); err != nil {
			return nil, err
		}
		s.headerSkipped = true
	}
	if s.buf == nil {
		s.buf = make([]byte, WAVStreamWindowSamples*2)
	}
	if err := readFull(s.r, s.buf); err != nil {
		return nil, err
	}
	return DecodePCM16LEToFloat32(s.buf)
}

// WAVFileSource serves a fully decoded WAV file in windows. The final window
// may be shorter than requested.
type WAVFileSource struct {
	samples []float32
	offset  int
}

// NewWAVFileSource decodes r, down-mixing to mono and resampling to SampleRate.
func NewWAVFileSource(r io.ReadSeeker) (*WAVFileSource, error) {
	samples, rate, err := DecodeWAVToFloat32(r)
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}
	if rate != SampleRate {
		samples = ResampleLinear(samples, rate, SampleRate)
	}
	return &WAVFileSource{samples: samples}, nil
}

// NextWindow returns up to n samples.
func (s *WAVFileSource) NextWindow(n int) ([]float32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("audio: window size must be > 0, got %d", n)
	}
	if s.offset >= len(s.samples) {
		return nil, ErrEndOfStream
	}
	end := s.offset + n
	if end > len(s.samples) {
		end = len(s.samples)
	}
	out := make([]float32, end-s.offset)
	copy(out, s.samples[s.offset:end])
	s.offset = end
	return out, nil
}

// Len is the total number of decoded samples.
func (s *WAVFileSource) Len() int { return len(s.samples) }
