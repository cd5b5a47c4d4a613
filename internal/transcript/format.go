package transcript

import (
	"fmt"
	"strings"

	"github.com/obiente/translate/streamrt/internal/whisper"
)

// FormatTimestamp renders a centisecond offset as MM:SS.mmm.
func FormatTimestamp(cs int64) string {
	sec := cs / 100
	minutes := sec / 60
	sec %= 60
	msec := (cs % 100) * 10
	return fmt.Sprintf("%02d:%02d.%03d", minutes, sec, msec)
}

// FormatSegment renders one timestamped line, terminator included.
func FormatSegment(s whisper.Segment) string {
	return fmt.Sprintf("[%s --> %s] %s\n", FormatTimestamp(s.Start), FormatTimestamp(s.End), s.Text)
}

// Format renders the output of one recognition call. Without timestamps the
// raw texts are concatenated with no separator.
func Format(segments []whisper.Segment, timestamps bool) string {
	var b strings.Builder
	for _, s := range segments {
		if timestamps {
			b.WriteString(FormatSegment(s))
		} else {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
