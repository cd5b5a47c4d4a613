package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/streamrt/internal/audio"
	"github.com/obiente/translate/streamrt/internal/config"
	serverhttp "github.com/obiente/translate/streamrt/internal/http"
	"github.com/obiente/translate/streamrt/internal/publish"
	"github.com/obiente/translate/streamrt/internal/session"
	"github.com/obiente/translate/streamrt/internal/transcript"
	"github.com/obiente/translate/streamrt/internal/translation"
	"github.com/obiente/translate/streamrt/internal/whisper"
	"github.com/obiente/translate/streamrt/internal/ws"
)

// newEngine is replaced in tests.
var newEngine = whisper.NewEngine

// runStream wires the session and runs it to completion. Everything acquired
// before the session starts is released here on failure; afterwards the
// session owns the sinks, the recognizer and the recorder.
func runStream(ctx context.Context, cfg config.Config, s streams) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := uuid.NewString()
	logger := log.Logger.With().Str("session_id", sessionID).Logger()

	if cfg.LengthMs < cfg.StepMs {
		logger.Warn().Int("length_ms", cfg.LengthMs).Int("step_ms", cfg.StepMs).Msg("length is shorter than step")
	}
	if cfg.CaptureID != -1 {
		logger.Warn().Int("capture", cfg.CaptureID).Msg("capture devices are not opened directly; reading audio from input")
	}

	in, closeInput, err := openInput(cfg, s.in)
	if err != nil {
		return fail(exitFailure, err)
	}
	defer closeInput()

	source, err := audio.NewSource(cfg.InputMode, in)
	if err != nil {
		return fail(exitFailure, err)
	}

	engine, err := newEngine(cfg.ModelPath, whisper.EngineOptions{UseGPU: cfg.UseGPU})
	if err != nil {
		return fail(exitEngineInit, fmt.Errorf("initialise engine from %s: %w", cfg.ModelPath, err))
	}
	recognizer := whisper.NewRecognizer(engine, cfg, logger)

	// Until the session takes ownership, release in reverse order of acquisition.
	var acquired []io.Closer
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			_ = acquired[i].Close()
		}
		_ = recognizer.Close()
	}

	sinks := []transcript.Sink{transcript.NewConsoleSink(s.out)}
	if cfg.OutputFile != "" {
		fs, err := transcript.OpenFileSink(cfg.OutputFile)
		if err != nil {
			release()
			return fail(exitOutputFile, err)
		}
		acquired = append(acquired, fs)
		sinks = append(sinks, fs)
	}

	if cfg.RedisURL != "" {
		rs, err := publish.Dial(ctx, cfg.RedisURL, cfg.RedisChannel, logger)
		if err != nil {
			release()
			return fail(exitFailure, err)
		}
		acquired = append(acquired, rs)
		sinks = append(sinks, rs)
	}

	var (
		hub *ws.Hub
		ln  net.Listener
	)
	if cfg.ListenAddr != "" {
		// Bind before the session starts so an unusable address fails fast.
		ln, err = net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			release()
			return fail(exitFailure, fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err))
		}
		acquired = append(acquired, ln)

		hub = ws.NewHub(ws.Options{
			Translator:         translation.New(cfg.TranslationBaseURL, cfg.TranslationTimeout()),
			Targets:            cfg.TranslationTargets,
			SourceLanguage:     cfg.Language,
			TranslationTimeout: cfg.TranslationTimeout(),
			Logger:             logger,
		})
		sinks = append(sinks, hub)
	}

	opts := session.Options{
		StepSamples: audio.MillisToSamples(cfg.StepMs),
		KeepSamples: audio.MillisToSamples(cfg.KeepMs),
		Logger:      logger,
	}
	if cfg.SaveAudio {
		rec, err := audio.NewRecorder(cfg.AudioDir, time.Now())
		if err != nil {
			release()
			return fail(exitFailure, err)
		}
		logger.Info().Str("path", rec.Path()).Msg("saving audio")
		opts.Recorder = rec
	}

	emitter := transcript.NewEmitter(sessionID, cfg.Timestamps, logger, sinks...)
	sess := session.New(sessionID, source, recognizer, emitter, opts)

	if hub != nil {
		srv := &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      serverhttp.NewRouter(sess, hub),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", ln.Addr().String()).Msg("caption server starting")
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("caption server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().
		Str("model", cfg.ModelPath).
		Str("language", cfg.Language).
		Str("input_mode", cfg.InputMode).
		Int("threads", cfg.Threads).
		Int("step_ms", cfg.StepMs).
		Int("length_ms", cfg.LengthMs).
		Int("keep_ms", cfg.KeepMs).
		Int("sinks", len(sinks)).
		Msg("session starting")

	if err := sess.Run(ctx); err != nil {
		return fail(exitFailure, err)
	}
	return nil
}

func openInput(cfg config.Config, stdin io.Reader) (io.Reader, func(), error) {
	if cfg.ReadsStdin() {
		return stdin, func() {}, nil
	}
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
