package transcript

import (
	"fmt"
	"io"
	"os"
)

// WriterSink writes formatted text to an io.Writer it does not own, such as
// standard output.
type WriterSink struct {
	name string
	w    io.Writer
}

// NewConsoleSink writes to w under the name "console".
func NewConsoleSink(w io.Writer) *WriterSink {
	return &WriterSink{name: "console", w: w}
}

func (s *WriterSink) Name() string { return s.name }

func (s *WriterSink) Write(b Batch) error {
	_, err := io.WriteString(s.w, b.Text)
	return err
}

// Close is a no-op; the writer belongs to the caller.
func (s *WriterSink) Close() error { return nil }

// FileSink appends formatted text to a file it opened.
type FileSink struct {
	path string
	f    *os.File
}

// OpenFileSink creates or truncates path for writing.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("transcript: open output file: %w", err)
	}
	return &FileSink{path: path, f: f}, nil
}

func (s *FileSink) Name() string { return "file:" + s.path }

func (s *FileSink) Write(b Batch) error {
	if s.f == nil {
		return os.ErrClosed
	}
	_, err := io.WriteString(s.f, b.Text)
	return err
}

// Close closes the file. Later calls return nil.
func (s *FileSink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
