// Package transcript formats recognised segments and fans them out to the
// session's output sinks.
package transcript

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/obiente/translate/streamrt/internal/whisper"
)

// Batch is the output of a single recognition call as delivered to sinks.
type Batch struct {
	SessionID string
	Sequence  int
	Segments  []whisper.Segment
	// Text is the formatted rendering console and file sinks write verbatim.
	Text string
}

// Sink is a transcript destination.
type Sink interface {
	Name() string
	Write(b Batch) error
	Close() error
}

// Emitter formats segments and writes them to every sink. Sink failures are
// logged and never interrupt the session.
type Emitter struct {
	sinks      []Sink
	timestamps bool
	sessionID  string
	log        zerolog.Logger

	seq      int
	failures int
	closed   bool
}

// NewEmitter returns an Emitter writing to sinks in order.
func NewEmitter(sessionID string, timestamps bool, logger zerolog.Logger, sinks ...Sink) *Emitter {
	return &Emitter{
		sinks:      sinks,
		timestamps: timestamps,
		sessionID:  sessionID,
		log:        logger.With().Str("component", "emitter").Logger(),
	}
}

// Emit writes the segments of one recognition call to all sinks.
func (e *Emitter) Emit(segments []whisper.Segment) {
	if e.closed {
		e.log.Warn().Int("segments", len(segments)).Msg("emit after close dropped")
		return
	}
	e.seq++
	if len(segments) == 0 {
		return
	}
	batch := Batch{
		SessionID: e.sessionID,
		Sequence:  e.seq,
		Segments:  segments,
		Text:      Format(segments, e.timestamps),
	}
	for _, s := range e.sinks {
		if err := s.Write(batch); err != nil {
			e.failures++
			e.log.Warn().Err(err).Str("sink", s.Name()).Int("sequence", batch.Sequence).Msg("sink write failed")
		}
	}
}

// Failures is the number of failed sink writes so far.
func (e *Emitter) Failures() int { return e.failures }

// Close closes every sink once and joins their errors.
func (e *Emitter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	var errs []error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
