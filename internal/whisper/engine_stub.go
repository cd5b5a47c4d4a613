//go:build !whisper_cpp

package whisper

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Default stub (no cgo) so the project builds without whisper_cpp tag. It
// reports one segment per call describing the window it received.
type stubEngine struct {
	calls int
}

func NewEngine(modelPath string, opts EngineOptions) (Engine, error) {
	log.Warn().Str("model", modelPath).Bool("use_gpu", opts.UseGPU).Msg("whisper: built without whisper_cpp tag, using stub engine")
	return &stubEngine{}, nil
}

func (e *stubEngine) Close() error { return nil }

func (e *stubEngine) Transcribe(samples []float32, params Params) ([]Segment, error) {
	e.calls++
	if len(samples) == 0 {
		return nil, nil
	}
	return []Segment{{
		Start: 0,
		End:   int64(len(samples)) * 100 / 16000,
		Text:  fmt.Sprintf(" [stub #%d] %d samples (%s)", e.calls, len(samples), params.Language),
	}}, nil
}
