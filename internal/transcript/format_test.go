package transcript

import (
	"strings"
	"testing"

	"github.com/obiente/translate/streamrt/internal/whisper"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		cs   int64
		want string
	}{
		{0, "00:00.000"},
		{100, "00:01.000"},
		{6000, "01:00.000"},
		{12345, "02:03.450"},
		{99, "00:00.990"},
	}
	for _, tc := range tests {
		if got := FormatTimestamp(tc.cs); got != tc.want {
			t.Fatalf("FormatTimestamp(%d) = %q, want %q", tc.cs, got, tc.want)
		}
	}
}

func TestFormatWithTimestamps(t *testing.T) {
	got := Format([]whisper.Segment{
		{Start: 0, End: 250, Text: " hello"},
		{Start: 250, End: 6000, Text: " there"},
	}, true)
	want := "[00:00.000 --> 00:02.500]  hello\n[00:02.500 --> 01:00.000]  there\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatWithoutTimestamps(t *testing.T) {
	got := Format([]whisper.Segment{
		{Start: 0, End: 250, Text: " hello"},
		{Start: 250, End: 500, Text: " world"},
	}, false)
	if got != " hello world" {
		t.Fatalf("unexpected text: %q", got)
	}
	if strings.Contains(got, "-->") || strings.Contains(got, "\n") {
		t.Fatalf("plain output must carry no timestamps or line breaks: %q", got)
	}
}

func TestNewRecordJoinsText(t *testing.T) {
	r := NewRecord(Batch{
		SessionID: "abc",
		Sequence:  3,
		Segments: []whisper.Segment{
			{Start: 0, End: 150, Text: " hello"},
			{Start: 150, End: 300, Text: " world"},
		},
	})
	if r.Type != "transcript" || r.SessionID != "abc" || r.Sequence != 3 {
		t.Fatalf("unexpected header %+v", r)
	}
	if r.Text != "hello world" {
		t.Fatalf("unexpected text %q", r.Text)
	}
	if len(r.Segments) != 2 || r.Segments[1].Start != 150 || r.Segments[1].End != 300 {
		t.Fatalf("unexpected segments %+v", r.Segments)
	}
}
