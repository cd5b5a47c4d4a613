package whisper

import "errors"

// DefaultTemperatureInc is the temperature step whisper.cpp uses when a
// decode fails its quality thresholds and is retried.
const DefaultTemperatureInc float32 = 0.2

// ErrEngineUnavailable is returned when no usable engine could be built.
var ErrEngineUnavailable = errors.New("whisper: engine unavailable")

// Segment is one span of recognised text. Start and End are offsets from the
// beginning of the transcribed window in centiseconds (1/100 s).
type Segment struct {
	Start int64
	End   int64
	Text  string
}

// Params are the per-call decoding parameters.
type Params struct {
	Threads        int
	Language       string
	Translate      bool
	MaxTokens      int
	AudioCtx       int
	NoTimestamps   bool
	PrintSpecial   bool
	SingleSegment  bool
	TemperatureInc float32
	KeepContext    bool
	TinyDiarize    bool
	SpeedUp        bool
	// VADThold and FreqThold are carried for engines that gate on voice
	// activity; the whisper.cpp engine does not read them.
	VADThold  float32
	FreqThold float32
}

// EngineOptions configures model loading.
type EngineOptions struct {
	UseGPU bool
}

// Engine is a small interface for whisper transcription.
// Implementations may be a stub or backed by whisper.cpp (build tag: whisper_cpp).
type Engine interface {
	// Transcribe runs a single synchronous decode over 16 kHz mono samples.
	Transcribe(samples []float32, params Params) ([]Segment, error)
	Close() error
}
