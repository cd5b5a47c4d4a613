//go:build whisper_cpp

package whisper

import (
	"fmt"
	"io"
	"sync"
	"time"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"
)

// EngineCPP is the whisper.cpp-backed implementation of Engine.
type EngineCPP struct {
	model whisperpkg.Model
	mu    sync.Mutex // serialises access to the model
}

func NewEngine(modelPath string, opts EngineOptions) (Engine, error) {
	m, err := whisperpkg.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if !opts.UseGPU {
		// The high-level bindings load with the library's context defaults.
		log.Warn().Msg("whisper: GPU preference not configurable through the Go bindings; using library default")
	}
	log.Info().Str("model", modelPath).Bool("multilingual", m.IsMultilingual()).Msg("whisper: model loaded successfully")
	return &EngineCPP{model: m}, nil
}

func (e *EngineCPP) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}

// Transcribe creates a fresh decoding context per call, applies params and
// collects every segment the decoder produced.
func (e *EngineCPP) Transcribe(samples []float32, params Params) ([]Segment, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil, ErrEngineUnavailable
	}

	ctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}

	if params.Threads > 0 {
		ctx.SetThreads(uint(params.Threads))
	}
	lang := params.Language
	if lang == "" {
		lang = "auto"
	}
	if err := ctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language %q: %w", lang, err)
	}
	ctx.SetTranslate(params.Translate)
	ctx.SetMaxTokensPerSegment(uint(params.MaxTokens))
	ctx.SetAudioCtx(uint(params.AudioCtx))
	ctx.SetTemperatureFallback(params.TemperatureInc)
	if !params.KeepContext {
		ctx.SetMaxContext(0)
	}

	start := time.Now()
	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		log.Error().Err(err).Int("samples", len(samples)).Msg("whisper: process failed")
		return nil, fmt.Errorf("process audio: %w", err)
	}

	var out []Segment
	for {
		seg, err := ctx.NextSegment()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read segment: %w", err)
		}
		out = append(out, Segment{
			Start: int64(seg.Start / (10 * time.Millisecond)),
			End:   int64(seg.End / (10 * time.Millisecond)),
			Text:  seg.Text,
		})
	}

	log.Debug().
		Int("samples", len(samples)).
		Int("segments", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("whisper: transcription complete")
	return out, nil
}
