package whisper

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/obiente/translate/streamrt/internal/config"
)

// ErrEngineFailure wraps every error returned by a recognition call. It is
// fatal to the session.
var ErrEngineFailure = errors.New("whisper: engine failure")

// ParamsFromConfig maps the session configuration onto per-call decoding
// parameters.
func ParamsFromConfig(cfg config.Config) Params {
	p := Params{
		Threads:        cfg.Threads,
		Language:       cfg.Language,
		Translate:      cfg.Translate,
		MaxTokens:      cfg.MaxTokens,
		AudioCtx:       cfg.AudioCtx,
		NoTimestamps:   !cfg.Timestamps,
		PrintSpecial:   cfg.PrintSpec,
		SingleSegment:  true,
		TemperatureInc: DefaultTemperatureInc,
		KeepContext:    cfg.KeepContext,
		TinyDiarize:    cfg.TinyDiarize,
		SpeedUp:        cfg.SpeedUp,
		VADThold:       cfg.VADThold,
		FreqThold:      cfg.FreqThold,
	}
	if !cfg.Fallback {
		p.TemperatureInc = 0
	}
	return p
}

// Recognizer is the synchronous transcription contract the session loop
// depends on. It owns the engine and releases it on Close.
type Recognizer struct {
	engine Engine
	params Params
	log    zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewRecognizer wraps engine with parameters derived from cfg.
func NewRecognizer(engine Engine, cfg config.Config, logger zerolog.Logger) *Recognizer {
	if engine == nil {
		panic("whisper: engine must not be nil")
	}
	return &Recognizer{
		engine: engine,
		params: ParamsFromConfig(cfg),
		log:    logger.With().Str("component", "recognizer").Logger(),
	}
}

// Params returns the decoding parameters used for every call.
func (r *Recognizer) Params() Params { return r.params }

// Transcribe decodes samples and returns at most one segment.
func (r *Recognizer) Transcribe(samples []float32) ([]Segment, error) {
	segments, err := r.engine.Transcribe(samples, r.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineFailure, err)
	}
	if r.params.SingleSegment && len(segments) > 1 {
		r.log.Debug().Int("segments", len(segments)).Msg("collapsing engine output into a single segment")
		segments = []Segment{collapse(segments)}
	}
	return segments, nil
}

// Close releases the engine. Only the first call reaches the engine.
func (r *Recognizer) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.engine.Close()
	})
	return r.closeErr
}

func collapse(segments []Segment) Segment {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return Segment{
		Start: segments[0].Start,
		End:   segments[len(segments)-1].End,
		Text:  b.String(),
	}
}
