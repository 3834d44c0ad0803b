package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// Classifier attaches an Emotion to a sentence of generated text.
type Classifier interface {
	Classify(ctx context.Context, text string) Emotion
}

// heuristicClassifier is the default classifier: a small keyword lexicon,
// grounded in the reference implementation's placeholder emotion mapper
// (no model dependency, always available, always fast).
type heuristicClassifier struct{}

func NewHeuristicClassifier() Classifier { return heuristicClassifier{} }

var heuristicLexicon = map[string][]string{
	"happy":     {"haha", "glad", "great", "awesome", "yay", "wonderful", "love"},
	"sad":       {"sorry", "sad", "unfortunately", "miss", "cry"},
	"surprised": {"wow", "really", "what", "unexpected", "!?"},
	"anger":     {"ugh", "annoying", "stop it", "no!"},
}

func (heuristicClassifier) Classify(_ context.Context, text string) Emotion {
	lower := strings.ToLower(text)
	e := Emotion{}
	for label, words := range heuristicLexicon {
		for _, w := range words {
			if strings.Contains(lower, w) {
				e[label] += 1.0
			}
		}
	}
	if len(e) == 0 {
		e["neutral"] = 1.0
	}
	return e
}

// remoteClassifyResult mirrors the sidecar's JSON response shape.
type remoteClassifyResult struct {
	Scores map[string]float64 `json:"scores"`
}

// RemoteClassifier calls an HTTP sidecar's /emotion endpoint with raw text,
// the same request/response shape as the audio-classification sidecar this
// module's sibling pipeline uses for spoken emotion, adapted here to text.
type RemoteClassifier struct {
	url    string
	client *http.Client
}

func NewRemoteClassifier(url string) *RemoteClassifier {
	return &RemoteClassifier{url: url, client: &http.Client{Timeout: 5 * time.Second}}
}

func (c *RemoteClassifier) Classify(ctx context.Context, text string) Emotion {
	payload, _ := json.Marshal(map[string]string{"text": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/emotion", bytes.NewReader(payload))
	if err != nil {
		return Emotion{"neutral": 1.0}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Emotion{"neutral": 1.0}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Emotion{"neutral": 1.0}
	}

	var result remoteClassifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Emotion{"neutral": 1.0}
	}
	return Emotion(result.Scores)
}

// NewClassifier picks a Classifier by backend name, defaulting to heuristic
// for an unrecognized or empty value rather than failing construction.
func NewClassifier(backend, url string) Classifier {
	if backend == "remote" && url != "" {
		return NewRemoteClassifier(url)
	}
	return NewHeuristicClassifier()
}
