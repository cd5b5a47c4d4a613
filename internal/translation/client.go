// Package translation talks to a LibreTranslate compatible HTTP service.
package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Translation is the normalized result for one target language.
type Translation struct {
	Primary          string   `json:"primary"`
	Alternatives     []string `json:"alternatives,omitempty"`
	DetectedLanguage string   `json:"detectedLanguage,omitempty"`
}

type Client struct {
	base string
	http *http.Client
}

// New returns a client for base. A non-positive timeout falls back to 8s.
func New(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		base: strings.TrimRight(strings.TrimSpace(base), "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a service URL is configured.
func (c *Client) Enabled() bool { return c != nil && c.base != "" }

// Translate requests translations of text into every target, one request per
// target, and returns them keyed by target language. An empty source is sent
// as "auto".
func (c *Client) Translate(ctx context.Context, text, source string, targets []string, altLimit int) (map[string]Translation, error) {
	out := make(map[string]Translation, len(targets))
	if !c.Enabled() || len(targets) == 0 || strings.TrimSpace(text) == "" {
		return out, nil
	}

	src := strings.TrimSpace(source)
	if src == "" {
		src = "auto"
	}
	for _, tgt := range targets {
		tr, err := c.translateOne(ctx, text, src, tgt, altLimit)
		if err != nil {
			return nil, err
		}
		out[tgt] = tr
	}
	return out, nil
}

func (c *Client) translateOne(ctx context.Context, text, source, target string, altLimit int) (Translation, error) {
	payload := map[string]any{
		"q":      text,
		"source": source,
		"target": target,
		"format": "text",
	}
	if altLimit > 0 {
		payload["alternatives"] = altLimit
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Translation{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/translate", bytes.NewReader(b))
	if err != nil {
		return Translation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Translation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Translation{}, fmt.Errorf("translation http %d for target %s", resp.StatusCode, target)
	}

	var lr struct {
		TranslatedText   string   `json:"translatedText"`
		Alternatives     []string `json:"alternatives"`
		DetectedLanguage any      `json:"detectedLanguage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return Translation{}, fmt.Errorf("decode translation for %s: %w", target, err)
	}

	tr := Translation{Primary: strings.TrimSpace(lr.TranslatedText)}
	for _, a := range lr.Alternatives {
		if s := strings.TrimSpace(a); s != "" {
			tr.Alternatives = append(tr.Alternatives, s)
		}
	}
	// LibreTranslate reports detectedLanguage either as a code or as
	// {"language": code, "confidence": n} when source is auto.
	switch d := lr.DetectedLanguage.(type) {
	case string:
		tr.DetectedLanguage = d
	case map[string]any:
		if lang, ok := d["language"].(string); ok {
			tr.DetectedLanguage = lang
		}
	}
	return tr, nil
}
