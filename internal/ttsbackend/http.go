// Package ttsbackend provides concrete tts.Synthesizer implementations: an
// HTTP client for a Piper-style synthesis sidecar and a deterministic dummy
// for development and tests.
package ttsbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/hellocym/SwarmClone/internal/tts"
)

// HTTPSynthesizer calls an HTTP synthesis sidecar speaking the same
// request/response shape as a Piper server: POST text+voice, receive raw
// audio bytes back.
type HTTPSynthesizer struct {
	url   string
	voice string
	cli   *http.Client
}

// NewHTTPSynthesizer constructs a synthesizer against a sidecar at url
// using the named voice.
func NewHTTPSynthesizer(url, voice string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		url:   url,
		voice: voice,
		cli:   &http.Client{Timeout: 30 * time.Second},
	}
}

type synthRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Synthesize implements tts.Synthesizer. The alignment data is approximated
// on the client side (the sidecar returns raw audio only) as one entry with
// a fixed 0.08 s per rune of content; the audio's length is not consulted.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, id, content string, emotion map[string]float64) (tts.Result, error) {
	body, err := json.Marshal(synthRequest{Text: content, Voice: s.voice})
	if err != nil {
		return tts.Result{}, fmt.Errorf("ttsbackend: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return tts.Result{}, fmt.Errorf("ttsbackend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.cli.Do(req)
	if err != nil {
		return tts.Result{}, fmt.Errorf("ttsbackend: request %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return tts.Result{}, fmt.Errorf("ttsbackend: status %d: %s", resp.StatusCode, string(b))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Result{}, fmt.Errorf("ttsbackend: read response: %w", err)
	}

	n := utf8.RuneCountInString(content)
	if n == 0 {
		n = 1
	}
	perToken := 0.08
	return tts.Result{
		Audio: audio,
		Align: []tts.AlignEntry{{Token: content, Duration: perToken * float64(n)}},
	}, nil
}
