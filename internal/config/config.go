package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Input modes understood by the sample source.
const (
	InputRaw       = "raw"
	InputWAVStream = "wav-stream"
	InputWAVFile   = "wav-file"
)

// ErrInvalid marks a configuration that cannot start a session.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the session configuration. It is built once at startup and not
// mutated after Validate succeeds.
type Config struct {
	Threads     int
	StepMs      int
	LengthMs    int
	KeepMs      int
	CaptureID   int
	MaxTokens   int
	AudioCtx    int
	VADThold    float32
	FreqThold   float32
	SpeedUp     bool
	Translate   bool
	Fallback    bool
	PrintSpec   bool
	KeepContext bool
	Timestamps  bool
	TinyDiarize bool
	SaveAudio   bool
	UseGPU      bool
	Language    string
	ModelPath   string
	OutputFile  string

	InputMode string
	InputPath string
	AudioDir  string

	ListenAddr   string
	RedisURL     string
	RedisChannel string

	TranslationBaseURL    string
	TranslationTargets    []string
	TranslationTimeoutSec int

	LogLevel string
}

// Default mirrors the defaults of the stream-rt command line.
func Default() Config {
	threads := runtime.NumCPU()
	if threads > 4 {
		threads = 4
	}
	return Config{
		Threads:               threads,
		StepMs:                3000,
		LengthMs:              10000,
		KeepMs:                200,
		CaptureID:             -1,
		MaxTokens:             32,
		VADThold:              0.6,
		FreqThold:             100.0,
		Fallback:              true,
		Timestamps:            true,
		UseGPU:                true,
		Language:              "en",
		ModelPath:             "models/ggml-base.en.bin",
		InputMode:             InputRaw,
		RedisChannel:          "streamrt:transcripts",
		TranslationTimeoutSec: 8,
		LogLevel:              "info",
	}
}

// Load builds a Config from v, which is expected to carry the bound command
// line flags, STREAMRT_* environment variables and an optional config file.
// Keys absent from v keep their Default values.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()

	setInt(v, "threads", &cfg.Threads)
	setInt(v, "step", &cfg.StepMs)
	setInt(v, "length", &cfg.LengthMs)
	setInt(v, "keep", &cfg.KeepMs)
	setInt(v, "capture", &cfg.CaptureID)
	setInt(v, "max_tokens", &cfg.MaxTokens)
	setInt(v, "audio_ctx", &cfg.AudioCtx)
	setInt(v, "translate_timeout", &cfg.TranslationTimeoutSec)
	if v.IsSet("vad_thold") {
		cfg.VADThold = float32(v.GetFloat64("vad_thold"))
	}
	if v.IsSet("freq_thold") {
		cfg.FreqThold = float32(v.GetFloat64("freq_thold"))
	}

	cfg.SpeedUp = v.GetBool("speed_up")
	cfg.Translate = v.GetBool("translate")
	cfg.Fallback = !v.GetBool("no_fallback")
	cfg.PrintSpec = v.GetBool("print_special")
	cfg.KeepContext = v.GetBool("keep_context")
	cfg.Timestamps = !v.GetBool("no_timestamps")
	cfg.TinyDiarize = v.GetBool("tinydiarize")
	cfg.SaveAudio = v.GetBool("save_audio")
	cfg.UseGPU = !v.GetBool("no_gpu")

	setString(v, "language", &cfg.Language)
	setString(v, "model", &cfg.ModelPath)
	setString(v, "file", &cfg.OutputFile)
	setString(v, "input", &cfg.InputPath)
	setString(v, "audio_dir", &cfg.AudioDir)
	setString(v, "listen", &cfg.ListenAddr)
	setString(v, "redis_url", &cfg.RedisURL)
	setString(v, "redis_channel", &cfg.RedisChannel)
	setString(v, "translate_url", &cfg.TranslationBaseURL)
	setString(v, "log_level", &cfg.LogLevel)

	switch {
	case v.GetString("input_mode") != "":
		cfg.InputMode = strings.TrimSpace(v.GetString("input_mode"))
	case v.GetBool("from_wav_file"):
		cfg.InputMode = InputWAVStream
	}

	// Environment values arrive as one comma separated string.
	for _, entry := range v.GetStringSlice("translate_to") {
		for _, target := range strings.Split(entry, ",") {
			if t := strings.TrimSpace(target); t != "" {
				cfg.TranslationTargets = append(cfg.TranslationTargets, t)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the session loop cannot run with.
func (c *Config) Validate() error {
	if c.StepMs <= 0 {
		return fmt.Errorf("%w: step must be > 0, got %d", ErrInvalid, c.StepMs)
	}
	if c.LengthMs < 0 {
		return fmt.Errorf("%w: length must be >= 0, got %d", ErrInvalid, c.LengthMs)
	}
	if c.KeepMs < 0 {
		return fmt.Errorf("%w: keep must be >= 0, got %d", ErrInvalid, c.KeepMs)
	}
	if c.Threads <= 0 {
		return fmt.Errorf("%w: threads must be > 0, got %d", ErrInvalid, c.Threads)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: max tokens must be >= 0, got %d", ErrInvalid, c.MaxTokens)
	}
	if c.AudioCtx < 0 {
		return fmt.Errorf("%w: audio context must be >= 0, got %d", ErrInvalid, c.AudioCtx)
	}
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("%w: model path is required", ErrInvalid)
	}
	if strings.TrimSpace(c.Language) == "" {
		c.Language = "auto"
	}
	switch c.InputMode {
	case InputRaw, InputWAVStream:
	case InputWAVFile:
		if c.ReadsStdin() {
			return fmt.Errorf("%w: input mode %q needs a file path", ErrInvalid, c.InputMode)
		}
	default:
		return fmt.Errorf("%w: unknown input mode %q", ErrInvalid, c.InputMode)
	}
	if c.TranslationTimeoutSec <= 0 {
		c.TranslationTimeoutSec = 8
	}
	return nil
}

// ReadsStdin reports whether audio comes from standard input.
func (c Config) ReadsStdin() bool {
	p := strings.TrimSpace(c.InputPath)
	return p == "" || p == "-"
}

// TranslationTimeout is the per-request timeout for the translation client.
func (c Config) TranslationTimeout() time.Duration {
	return time.Duration(c.TranslationTimeoutSec) * time.Second
}

func setInt(v *viper.Viper, key string, target *int) {
	if v.IsSet(key) {
		*target = v.GetInt(key)
	}
}

func setString(v *viper.Viper, key string, target *string) {
	if v.IsSet(key) {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			*target = s
		}
	}
}
