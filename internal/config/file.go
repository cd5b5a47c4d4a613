package config

// fileView is the YAML layout of a config file. Its keys are the viper keys
// Load reads, so the output of MarshalYAML can be passed back with --config.
type fileView struct {
	Threads          int      `yaml:"threads"`
	Step             int      `yaml:"step"`
	Length           int      `yaml:"length"`
	Keep             int      `yaml:"keep"`
	Capture          int      `yaml:"capture"`
	MaxTokens        int      `yaml:"max_tokens"`
	AudioCtx         int      `yaml:"audio_ctx"`
	VADThold         float32  `yaml:"vad_thold"`
	FreqThold        float32  `yaml:"freq_thold"`
	SpeedUp          bool     `yaml:"speed_up"`
	Translate        bool     `yaml:"translate"`
	NoFallback       bool     `yaml:"no_fallback"`
	PrintSpecial     bool     `yaml:"print_special"`
	KeepContext      bool     `yaml:"keep_context"`
	NoTimestamps     bool     `yaml:"no_timestamps"`
	TinyDiarize      bool     `yaml:"tinydiarize"`
	SaveAudio        bool     `yaml:"save_audio"`
	NoGPU            bool     `yaml:"no_gpu"`
	Language         string   `yaml:"language"`
	Model            string   `yaml:"model"`
	File             string   `yaml:"file,omitempty"`
	InputMode        string   `yaml:"input_mode"`
	Input            string   `yaml:"input,omitempty"`
	AudioDir         string   `yaml:"audio_dir,omitempty"`
	Listen           string   `yaml:"listen,omitempty"`
	RedisURL         string   `yaml:"redis_url,omitempty"`
	RedisChannel     string   `yaml:"redis_channel,omitempty"`
	TranslateURL     string   `yaml:"translate_url,omitempty"`
	TranslateTo      []string `yaml:"translate_to,omitempty"`
	TranslateTimeout int      `yaml:"translate_timeout"`
	LogLevel         string   `yaml:"log_level"`
}

// MarshalYAML renders c with the same keys and flag polarity as the command
// line.
func (c Config) MarshalYAML() (interface{}, error) {
	return fileView{
		Threads:          c.Threads,
		Step:             c.StepMs,
		Length:           c.LengthMs,
		Keep:             c.KeepMs,
		Capture:          c.CaptureID,
		MaxTokens:        c.MaxTokens,
		AudioCtx:         c.AudioCtx,
		VADThold:         c.VADThold,
		FreqThold:        c.FreqThold,
		SpeedUp:          c.SpeedUp,
		Translate:        c.Translate,
		NoFallback:       !c.Fallback,
		PrintSpecial:     c.PrintSpec,
		KeepContext:      c.KeepContext,
		NoTimestamps:     !c.Timestamps,
		TinyDiarize:      c.TinyDiarize,
		SaveAudio:        c.SaveAudio,
		NoGPU:            !c.UseGPU,
		Language:         c.Language,
		Model:            c.ModelPath,
		File:             c.OutputFile,
		InputMode:        c.InputMode,
		Input:            c.InputPath,
		AudioDir:         c.AudioDir,
		Listen:           c.ListenAddr,
		RedisURL:         c.RedisURL,
		RedisChannel:     c.RedisChannel,
		TranslateURL:     c.TranslationBaseURL,
		TranslateTo:      c.TranslationTargets,
		TranslateTimeout: c.TranslationTimeoutSec,
		LogLevel:         c.LogLevel,
	}, nil
}
