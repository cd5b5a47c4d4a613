package ws

import (
	"github.com/obiente/translate/streamrt/internal/transcript"
	"github.com/obiente/translate/streamrt/internal/translation"
)

// Caption is the JSON message pushed to subscribers for every batch.
type Caption struct {
	transcript.Record
	Translations map[string]translation.Translation `json:"translations,omitempty"`
}

// NewCaption converts a transcript batch into its wire form.
func NewCaption(b transcript.Batch) Caption {
	return Caption{Record: transcript.NewRecord(b)}
}
