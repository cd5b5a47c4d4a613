package session

import (
	"time"

	"github.com/rs/zerolog"
)

// Stats accumulates per-session counters.
type Stats struct {
	Started       time.Time
	Finished      time.Time
	Windows       int
	Samples       int
	Segments      int
	InferenceTime time.Duration
	SinkFailures  int
}

func (s *Stats) recordWindow(fresh int, segments int, took time.Duration) {
	s.Windows++
	s.Samples += fresh
	s.Segments += segments
	s.InferenceTime += took
}

func (s Stats) log(logger zerolog.Logger, err error) {
	ev := logger.Info()
	msg := "session completed"
	if err != nil {
		ev = logger.Error().Err(err)
		msg = "session completed with error"
	}
	ev.Dur("duration", s.Finished.Sub(s.Started)).
		Int("windows", s.Windows).
		Int("samples", s.Samples).
		Int("segments", s.Segments).
		Dur("inference", s.InferenceTime).
		Int("sink_failures", s.SinkFailures).
		Msg(msg)
}
