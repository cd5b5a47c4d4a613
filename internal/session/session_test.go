package session

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/obiente/translate/streamrt/internal/audio"
	"github.com/obiente/translate/streamrt/internal/whisper"
)

type scriptedSource struct {
	windows [][]float32
	tail    error
	reads   int
}

func (s *scriptedSource) NextWindow(n int) ([]float32, error) {
	s.reads++
	if len(s.windows) == 0 {
		if s.tail != nil {
			return nil, s.tail
		}
		return nil, audio.ErrEndOfStream
	}
	w := s.windows[0]
	s.windows = s.windows[1:]
	return w, nil
}

type fakeRecognizer struct {
	calls   int
	failOn  int
	inputs  [][]float32
	closes  int
	journal *[]string
}

func (r *fakeRecognizer) Transcribe(samples []float32) ([]whisper.Segment, error) {
	r.calls++
	r.inputs = append(r.inputs, append([]float32(nil), samples...))
	if r.failOn > 0 && r.calls == r.failOn {
		return nil, errors.New("engine exploded")
	}
	return []whisper.Segment{{Start: 0, End: int64(len(samples)), Text: " window"}}, nil
}

func (r *fakeRecognizer) Close() error {
	r.closes++
	if r.journal != nil {
		*r.journal = append(*r.journal, "recognizer")
	}
	return nil
}

type fakeEmitter struct {
	emitted [][]whisper.Segment
	closes  int
	journal *[]string
}

func (e *fakeEmitter) Emit(segments []whisper.Segment) {
	e.emitted = append(e.emitted, segments)
}

func (e *fakeEmitter) Close() error {
	e.closes++
	if e.journal != nil {
		*e.journal = append(*e.journal, "emitter")
	}
	return nil
}

type fakeRecorder struct {
	written int
	closes  int
	journal *[]string
}

func (r *fakeRecorder) Write(samples []float32) error {
	r.written += len(samples)
	return nil
}

func (r *fakeRecorder) Close() error {
	r.closes++
	if r.journal != nil {
		*r.journal = append(*r.journal, "recorder")
	}
	return nil
}

func filled(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRunTwoWindowsThenEndOfStream(t *testing.T) {
	var journal []string
	src := &scriptedSource{windows: [][]float32{filled(48, 0.1), filled(48, 0.2)}}
	rec := &fakeRecognizer{journal: &journal}
	em := &fakeEmitter{journal: &journal}
	recorder := &fakeRecorder{journal: &journal}

	s := New("sess-1", src, rec, em, Options{StepSamples: 48, KeepSamples: 4, Recorder: recorder, Logger: zerolog.Nop()})
	if s.State() != Idle {
		t.Fatalf("expected Idle before Run, got %s", s.State())
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rec.calls != 2 {
		t.Fatalf("expected 2 recognizer calls, got %d", rec.calls)
	}
	if len(em.emitted) != 2 {
		t.Fatalf("expected 2 emits, got %d", len(em.emitted))
	}
	if s.State() != Terminated {
		t.Fatalf("expected Terminated, got %s", s.State())
	}
	if em.closes != 1 || rec.closes != 1 || recorder.closes != 1 {
		t.Fatalf("expected single close each, got emitter=%d recognizer=%d recorder=%d", em.closes, rec.closes, recorder.closes)
	}
	want := []string{"emitter", "recognizer", "recorder"}
	for i := range want {
		if journal[i] != want[i] {
			t.Fatalf("drain order = %v, want %v", journal, want)
		}
	}
	if recorder.written != 96 {
		t.Fatalf("expected recorder to see 96 fresh samples, got %d", recorder.written)
	}

	// The second window starts with the last four samples of the first.
	second := rec.inputs[1]
	if len(second) != 52 {
		t.Fatalf("expected 4 carried + 48 fresh samples, got %d", len(second))
	}
	for i := 0; i < 4; i++ {
		if second[i] != 0.1 {
			t.Fatalf("carried sample %d = %v, want 0.1", i, second[i])
		}
	}
	if second[4] != 0.2 {
		t.Fatalf("fresh audio should follow carried audio, got %v", second[4])
	}

	st := s.Stats()
	if st.Windows != 2 || st.Samples != 96 || st.Segments != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestRunEngineFailureDrains(t *testing.T) {
	src := &scriptedSource{windows: [][]float32{filled(16, 0.1), filled(16, 0.2), filled(16, 0.3)}}
	rec := &fakeRecognizer{failOn: 2}
	em := &fakeEmitter{}

	s := New("sess-2", src, rec, em, Options{StepSamples: 16, Logger: zerolog.Nop()})
	err := s.Run(context.Background())
	if err == nil || err.Error() != "engine exploded" {
		t.Fatalf("expected engine failure, got %v", err)
	}
	if rec.calls != 2 {
		t.Fatalf("expected no call after the failure, got %d calls", rec.calls)
	}
	if len(em.emitted) != 1 {
		t.Fatalf("expected first window's segments to be emitted, got %d emits", len(em.emitted))
	}
	if s.State() != Terminated {
		t.Fatalf("expected Terminated, got %s", s.State())
	}
	if em.closes != 1 || rec.closes != 1 {
		t.Fatalf("expected single close each, got emitter=%d recognizer=%d", em.closes, rec.closes)
	}
}

func TestRunTruncatedReadIsNotAFailure(t *testing.T) {
	src := &scriptedSource{
		windows: [][]float32{filled(8, 0.5)},
		tail:    &audio.ReadError{Got: 12, Want: 32, Err: io.ErrUnexpectedEOF},
	}
	rec := &fakeRecognizer{}
	em := &fakeEmitter{}

	s := New("sess-3", src, rec, em, Options{StepSamples: 8, Logger: zerolog.Nop()})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("expected truncated read to end cleanly, got %v", err)
	}
	if rec.calls != 1 {
		t.Fatalf("partial window must not reach the recognizer, got %d calls", rec.calls)
	}
	if em.closes != 1 || rec.closes != 1 {
		t.Fatalf("expected drain after truncated read")
	}
}

func TestRunReadFailureIsReturned(t *testing.T) {
	boom := errors.New("disk on fire")
	src := &scriptedSource{tail: &audio.ReadError{Got: 0, Want: 32, Err: boom}}
	rec := &fakeRecognizer{}
	em := &fakeEmitter{}

	s := New("sess-4", src, rec, em, Options{StepSamples: 8, Logger: zerolog.Nop()})
	err := s.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped read failure, got %v", err)
	}
	if rec.calls != 0 {
		t.Fatalf("expected no recognizer calls, got %d", rec.calls)
	}
	if s.State() != Terminated || em.closes != 1 || rec.closes != 1 {
		t.Fatalf("expected drained Terminated session")
	}
}

func TestRunZeroKeepCarriesNothing(t *testing.T) {
	src := &scriptedSource{windows: [][]float32{filled(10, 0.1), filled(10, 0.2), filled(10, 0.3)}}
	rec := &fakeRecognizer{}

	s := New("sess-5", src, rec, &fakeEmitter{}, Options{StepSamples: 10, KeepSamples: 0, Logger: zerolog.Nop()})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, in := range rec.inputs {
		if len(in) != 10 {
			t.Fatalf("window %d: expected only fresh samples, got %d", i, len(in))
		}
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	src := &scriptedSource{windows: [][]float32{filled(4, 0.1)}}
	rec := &fakeRecognizer{}
	em := &fakeEmitter{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New("sess-6", src, rec, em, Options{StepSamples: 4, Logger: zerolog.Nop()})
	if err := s.Run(ctx); err != nil {
		t.Fatalf("expected cancellation to drain cleanly, got %v", err)
	}
	if src.reads != 0 || rec.calls != 0 {
		t.Fatalf("expected no work after cancellation, reads=%d calls=%d", src.reads, rec.calls)
	}
	if s.State() != Terminated || em.closes != 1 || rec.closes != 1 {
		t.Fatalf("expected drained Terminated session")
	}
}

func TestRunOnlyOnce(t *testing.T) {
	s := New("sess-7", &scriptedSource{}, &fakeRecognizer{}, &fakeEmitter{}, Options{StepSamples: 4, Logger: zerolog.Nop()})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{Idle: "idle", Running: "running", Draining: "draining", Terminated: "terminated", State(42): "unknown"} {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
