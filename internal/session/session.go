// Package session drives the read, transcribe and emit cycle of a single
// audio stream.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/obiente/translate/streamrt/internal/audio"
	"github.com/obiente/translate/streamrt/internal/whisper"
	"github.com/obiente/translate/streamrt/internal/window"
)

// ErrAlreadyStarted is returned when Run is called on a session that has left
// the Idle state.
var ErrAlreadyStarted = errors.New("session: already started")

// Recognizer transcribes one window synchronously and owns the engine.
type Recognizer interface {
	Transcribe(samples []float32) ([]whisper.Segment, error)
	Close() error
}

// Emitter writes recognised segments to the output sinks it owns.
type Emitter interface {
	Emit(segments []whisper.Segment)
	Close() error
}

// Recorder receives every freshly read window, e.g. to save the audio.
type Recorder interface {
	Write(samples []float32) error
	Close() error
}

type failureCounter interface {
	Failures() int
}

// Options tune a Session.
type Options struct {
	// StepSamples is the number of samples requested from the source per cycle.
	StepSamples int
	// KeepSamples bounds the audio carried from one window into the next.
	KeepSamples int
	Recorder    Recorder
	Logger      zerolog.Logger
}

// Session is the single-threaded controller for one stream. After Run
// returns it owns nothing: the emitter, the recognizer and the recorder have
// been closed exactly once.
type Session struct {
	id         string
	state      atomic.Int32
	step       int
	source     audio.Source
	buffer     *window.Buffer
	recognizer Recognizer
	emitter    Emitter
	recorder   Recorder
	log        zerolog.Logger
	stats      Stats
}

// New builds an idle session. The session takes ownership of recognizer,
// emitter and opts.Recorder.
func New(id string, source audio.Source, recognizer Recognizer, emitter Emitter, opts Options) *Session {
	if source == nil || recognizer == nil || emitter == nil {
		panic("session: source, recognizer and emitter are required")
	}
	return &Session{
		id:         id,
		step:       opts.StepSamples,
		source:     source,
		buffer:     window.New(opts.KeepSamples),
		recognizer: recognizer,
		emitter:    emitter,
		recorder:   opts.Recorder,
		log:        opts.Logger.With().Str("component", "session").Str("session_id", id).Logger(),
	}
}

// ID identifies the session in logs and structured sinks.
func (s *Session) ID() string { return s.id }

// State reports the current lifecycle phase. It is safe to call from other
// goroutines while Run is in progress.
func (s *Session) State() State { return State(s.state.Load()) }

// Stats returns the counters collected so far.
func (s *Session) Stats() Stats { return s.stats }

// Run processes windows until the source is exhausted, a read fails, the
// recognizer fails, or ctx is cancelled between cycles. End of stream and
// cancellation return nil; read and engine failures are returned after the
// session has drained.
func (s *Session) Run(ctx context.Context) (err error) {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrAlreadyStarted
	}
	s.stats.Started = time.Now()
	s.log.Debug().Stringer("from", Idle).Stringer("to", Running).Msg("state transition")

	defer func() {
		s.setState(Draining)
		s.drain()
		s.stats.Finished = time.Now()
		s.setState(Terminated)
		s.stats.log(s.log, err)
	}()

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.log.Info().Err(ctxErr).Msg("stop requested")
			return nil
		}
		if err := s.cycle(); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
}

var errStop = errors.New("session: stop")

// cycle performs one read, merge, transcribe, emit and retain step.
func (s *Session) cycle() error {
	fresh, err := s.source.NextWindow(s.step)
	if err != nil {
		var readErr *audio.ReadError
		switch {
		case errors.Is(err, audio.ErrEndOfStream):
			s.log.Info().Int("windows", s.stats.Windows).Msg("end of audio stream")
			return errStop
		case errors.As(err, &readErr) && readErr.Truncated():
			s.log.Warn().Int("got_bytes", readErr.Got).Int("want_bytes", readErr.Want).Msg("stream ended mid-window, partial window discarded")
			return errStop
		default:
			return fmt.Errorf("session: read window: %w", err)
		}
	}

	if s.recorder != nil {
		if err := s.recorder.Write(fresh); err != nil {
			s.log.Warn().Err(err).Msg("save audio failed")
		}
	}

	win := s.buffer.Prepare(fresh)
	s.log.Debug().
		Int("iteration", s.stats.Windows+1).
		Int("fresh_samples", len(fresh)).
		Int("window_samples", len(win)).
		Msg("processing window")

	start := time.Now()
	segments, err := s.recognizer.Transcribe(win)
	took := time.Since(start)
	if err != nil {
		s.log.Error().Err(err).Int("window_samples", len(win)).Msg("recognition failed")
		return err
	}
	s.stats.recordWindow(len(fresh), len(segments), took)

	s.emitter.Emit(segments)
	s.buffer.Update(win)
	return nil
}

// drain releases the sinks, then the engine, then the recorder.
func (s *Session) drain() {
	if err := s.emitter.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing output sinks")
	}
	if fc, ok := s.emitter.(failureCounter); ok {
		s.stats.SinkFailures = fc.Failures()
	}
	if err := s.recognizer.Close(); err != nil {
		s.log.Warn().Err(err).Msg("releasing recognition engine")
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing audio recording")
		}
	}
}

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	s.log.Debug().Stringer("from", prev).Stringer("to", next).Msg("state transition")
}
