package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/obiente/translate/streamrt/internal/config"
)

// Process exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitEngineInit = 2
	exitOutputFile = 3
)

// exitError carries the process exit code out of a cobra command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error { return &exitError{code: code, err: err} }

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	os.Exit(execute(os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}))
}

func execute(args []string, s streams) int {
	cmd := newRootCmd(viper.New(), s)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		log.Error().Err(ee.err).Int("exit_code", ee.code).Msg("streamrt failed")
		return ee.code
	}
	fmt.Fprintln(s.err, "error:", err)
	return exitFailure
}

func newRootCmd(v *viper.Viper, s streams) *cobra.Command {
	root := &cobra.Command{
		Use:   "streamrt",
		Short: "Real-time speech-to-text over a streamed audio input",
		Long: `streamrt reads audio from standard input or a file, cuts it into windows,
transcribes each window with whisper and prints the segments as they arrive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, s.err)
			if err != nil {
				return err
			}
			return runStream(cmd.Context(), cfg, s)
		},
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)

	registerFlags(root, v)

	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, s.err)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(s.out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fail(exitFailure, fmt.Errorf("encode config: %w", err))
			}
			return enc.Close()
		},
	})
	return root
}

// registerFlags declares every persistent flag and binds it to the viper key
// config.Load reads.
func registerFlags(root *cobra.Command, v *viper.Viper) {
	d := config.Default()
	f := root.PersistentFlags()

	f.IntP("threads", "t", d.Threads, "number of threads to use during computation")
	f.Int("step", d.StepMs, "audio step size in milliseconds")
	f.Int("length", d.LengthMs, "audio length in milliseconds")
	f.Int("keep", d.KeepMs, "audio to keep from the previous step in milliseconds")
	f.IntP("capture", "c", d.CaptureID, "capture device id (unused; audio is read from --input)")
	f.Int("max-tokens", d.MaxTokens, "maximum number of tokens per audio chunk")
	f.Int("audio-ctx", d.AudioCtx, "audio context size (0 = all)")
	f.Float32("vad-thold", d.VADThold, "voice activity detection threshold")
	f.Float32("freq-thold", d.FreqThold, "high-pass frequency cutoff")
	f.Bool("speed-up", false, "speed up audio by x2 (reduced accuracy)")
	f.Bool("translate", false, "translate from source language to english")
	f.Bool("no-fallback", false, "do not use temperature fallback while decoding")
	f.Bool("print-special", false, "print special tokens")
	f.Bool("keep-context", false, "keep context between audio chunks")
	f.StringP("language", "l", d.Language, "spoken language (auto for detection)")
	f.StringP("model", "m", d.ModelPath, "model path")
	f.Bool("from-wav-file", false, "read a streamed WAV container instead of raw float32 samples")
	f.StringP("file", "f", "", "text output file name")
	f.Bool("tinydiarize", false, "enable tinydiarize (requires a tdrz model)")
	f.Bool("save-audio", false, "save the received audio to a WAV file")
	f.Bool("no-gpu", false, "disable GPU inference")
	f.Bool("no-timestamps", false, "do not print timestamps")

	f.String("input", "", "audio input path (default standard input)")
	f.String("input-mode", "", "input format: raw, wav-stream or wav-file")
	f.String("audio-dir", "", "directory for --save-audio recordings")
	f.String("listen", "", "serve /healthz and /ws/captions on this address")
	f.String("redis-url", "", "publish transcripts to this Redis server")
	f.String("redis-channel", d.RedisChannel, "Redis pub/sub channel")
	f.String("translate-url", "", "LibreTranslate compatible base URL for caption translations")
	f.StringSlice("translate-to", nil, "caption translation target languages")
	f.Int("translate-timeout", d.TranslationTimeoutSec, "translation request timeout in seconds")
	f.String("log-level", d.LogLevel, "log level (trace, debug, info, warn, error)")
	f.String("config", "", "YAML config file")

	f.VisitAll(func(fl *pflag.Flag) {
		if fl.Name == "config" {
			return
		}
		_ = v.BindPFlag(strings.ReplaceAll(fl.Name, "-", "_"), fl)
	})
	_ = v.BindPFlag("config", f.Lookup("config"))
}

func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix("STREAMRT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fail(exitFailure, fmt.Errorf("read config file: %w", err))
		}
	}
	return nil
}

func loadConfig(v *viper.Viper, logOut io.Writer) (config.Config, error) {
	cfg, err := config.Load(v)
	setupLogging(v.GetString("log_level"), logOut)
	if err != nil {
		return config.Config{}, fail(exitFailure, err)
	}
	return cfg, nil
}

// setupLogging points the global logger at w so that stdout only carries
// transcript text.
func setupLogging(level string, w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
}
