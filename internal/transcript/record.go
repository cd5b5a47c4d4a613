package transcript

import "strings"

// RecordSegment is one timed segment in centiseconds, relative to its window.
type RecordSegment struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Text  string `json:"text"`
}

// Record is the structured form of a Batch used by network sinks.
type Record struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Sequence  int             `json:"sequence"`
	Text      string          `json:"text"`
	Segments  []RecordSegment `json:"segments"`
}

// NewRecord converts b, joining segment texts into Text.
func NewRecord(b Batch) Record {
	r := Record{
		Type:      "transcript",
		SessionID: b.SessionID,
		Sequence:  b.Sequence,
		Segments:  make([]RecordSegment, 0, len(b.Segments)),
	}
	var text strings.Builder
	for _, s := range b.Segments {
		r.Segments = append(r.Segments, RecordSegment{Start: s.Start, End: s.End, Text: s.Text})
		text.WriteString(s.Text)
	}
	r.Text = strings.TrimSpace(text.String())
	return r
}
