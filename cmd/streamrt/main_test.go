package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obiente/translate/streamrt/internal/whisper"
)

func rawAudio(samples int, value float32) []byte {
	out := make([]byte, 4*samples)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(value))
	}
	return out
}

func run(t *testing.T, stdin []byte, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := execute(args, streams{in: bytes.NewReader(stdin), out: &out, err: &errOut})
	return code, out.String(), errOut.String()
}

type closeTrackingEngine struct {
	closes int
}

func (e *closeTrackingEngine) Transcribe([]float32, whisper.Params) ([]whisper.Segment, error) {
	return nil, nil
}

func (e *closeTrackingEngine) Close() error {
	e.closes++
	return nil
}

func withEngine(t *testing.T, fn func(string, whisper.EngineOptions) (whisper.Engine, error)) {
	t.Helper()
	prev := newEngine
	newEngine = fn
	t.Cleanup(func() { newEngine = prev })
}

func TestHelpExitsZero(t *testing.T) {
	code, out, _ := run(t, nil, "--help")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "--keep-context") {
		t.Fatalf("expected usage on stdout, got %q", out)
	}
}

func TestInvalidConfigExitsOne(t *testing.T) {
	if code, _, _ := run(t, nil, "--step", "0"); code != exitFailure {
		t.Fatalf("expected exit 1 for step 0, got %d", code)
	}
	if code, _, _ := run(t, nil, "--no-such-flag"); code != exitFailure {
		t.Fatalf("expected exit 1 for unknown flag, got %d", code)
	}
}

func TestConfigCommandPrintsYAML(t *testing.T) {
	code, out, _ := run(t, nil, "config", "--step", "500", "--no-timestamps", "-l", "de")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"step: 500", "no_timestamps: true", "language: de"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamrt.yaml")
	if err := os.WriteFile(path, []byte("step: 1500\nlanguage: fr\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("STREAMRT_KEEP", "0")

	code, out, _ := run(t, nil, "config", "--config", path, "-l", "it")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"step: 1500", "keep: 0", "language: it"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}

	if code, _, _ := run(t, nil, "config", "--config", filepath.Join(t.TempDir(), "missing.yaml")); code != exitFailure {
		t.Fatalf("expected exit 1 for missing config file, got %d", code)
	}
}

func TestStreamToConsoleAndFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "transcript.txt")
	// 10 ms steps are 160 samples; two full windows then end of stream.
	code, out, logs := run(t, rawAudio(320, 0.1),
		"--step", "10", "--keep", "0", "--no-timestamps", "-f", outFile, "--log-level", "error")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d\nlogs: %s", code, logs)
	}
	want := " [stub #1] 160 samples (en) [stub #2] 160 samples (en)"
	if out != want {
		t.Fatalf("console output = %q, want %q", out, want)
	}
	written, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(written) != out {
		t.Fatalf("file output %q differs from console %q", written, out)
	}
}

func TestEngineInitFailureExitsTwo(t *testing.T) {
	withEngine(t, func(string, whisper.EngineOptions) (whisper.Engine, error) {
		return nil, errors.New("no such model")
	})
	if code, _, _ := run(t, nil, "-m", "missing.bin"); code != exitEngineInit {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestOutputFileFailureExitsThreeAndReleasesEngine(t *testing.T) {
	engine := &closeTrackingEngine{}
	withEngine(t, func(string, whisper.EngineOptions) (whisper.Engine, error) {
		return engine, nil
	})
	bad := filepath.Join(t.TempDir(), "no", "such", "dir", "out.txt")
	if code, _, _ := run(t, nil, "-f", bad); code != exitOutputFile {
		t.Fatalf("expected exit 3, got %d", code)
	}
	if engine.closes != 1 {
		t.Fatalf("expected engine to be released once, got %d", engine.closes)
	}
}

func TestListenFailureExitsOneAndReleasesEngine(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer busy.Close()

	engine := &closeTrackingEngine{}
	withEngine(t, func(string, whisper.EngineOptions) (whisper.Engine, error) {
		return engine, nil
	})
	code, out, _ := run(t, rawAudio(160, 0.1), "--step", "10", "--listen", busy.Addr().String())
	if code != exitFailure {
		t.Fatalf("expected exit 1 when the caption address is taken, got %d", code)
	}
	if out != "" {
		t.Fatalf("no audio should be transcribed when the server cannot bind, got %q", out)
	}
	if engine.closes != 1 {
		t.Fatalf("expected engine to be released once, got %d", engine.closes)
	}
}
