// Package message defines the immutable envelope that flows between modules
// and the fixed catalog of message names the core understands.
package message

import (
	"log/slog"
	"time"

	"github.com/hellocym/SwarmClone/internal/role"
)

// Kind distinguishes an event-only signal from a payload-carrying datum.
type Kind string

const (
	Signal Kind = "SIGNAL"
	Data   Kind = "DATA"
)

// Source is a borrowed reference to a message's emitting module: role and
// display name only, never a strong pointer back to the module itself. This
// is what breaks the module<->message ownership cycle (see design notes).
type Source struct {
	Role role.Role
	Name string
}

// Observation records that a module of a given name consumed a message's
// payload at a given wall-clock time. Append-only; introspection only, never
// a delivery acknowledgement.
type Observation struct {
	Name string `json:"name"`
	Time int64  `json:"time"`
}

// Message is immutable after construction: every field is set once by a
// catalog constructor and never mutated except for the append-only
// observedBy slice, which grows but never shrinks or reorders.
type Message struct {
	Kind         Kind
	Name         string
	Source       Source
	Destinations []role.Role
	Payload      map[string]any
	CreatedAt    time.Time // monotonic, for timeouts and ordering
	SendTime     int64     // wall-clock unix seconds, for human display only

	observedBy []Observation
}

func newMessage(kind Kind, name string, source Source, destinations []role.Role, payload map[string]any) *Message {
	return &Message{
		Kind:         kind,
		Name:         name,
		Source:       source,
		Destinations: destinations,
		Payload:      payload,
		CreatedAt:    time.Now(),
		SendTime:     time.Now().Unix(),
	}
}

// DestinedFor reports whether role r is among this message's destinations.
func (m *Message) DestinedFor(r role.Role) bool {
	for _, d := range m.Destinations {
		if d == r {
			return true
		}
	}
	return false
}

// GetValue is the consumption-side accessor a module calls when it dequeues
// a message: it enforces the destination-role check, records the observer in
// the append-only history, and hands back the payload. A module whose role
// is not a destination gets nothing and the miss is logged, mirroring the
// reference implementation's behavior instead of silently returning data a
// module was never meant to see.
func (m *Message) GetValue(getter Source) map[string]any {
	if !m.DestinedFor(getter.Role) {
		slog.Debug("message not destined for getter", "message", m.Name, "getter_role", getter.Role, "getter_name", getter.Name)
		return nil
	}
	m.observedBy = append(m.observedBy, Observation{Name: getter.Name, Time: time.Now().Unix()})
	return m.Payload
}

// ObservedBy returns a copy of the append-only observer list.
func (m *Message) ObservedBy() []Observation {
	out := make([]Observation, len(m.observedBy))
	copy(out, m.observedBy)
	return out
}

// --- message catalog -------------------------------------------------------

func NewASRActivated(source Source) *Message {
	return newMessage(Signal, "ASRActivated", source, []role.Role{role.TTS, role.FRONTEND, role.LLM}, nil)
}

func NewASRMessage(source Source, speakerName, text string) *Message {
	return newMessage(Data, "ASRMessage", source, []role.Role{role.LLM, role.FRONTEND}, map[string]any{
		"speaker_name": speakerName,
		"message":      text,
	})
}

func NewChatMessage(source Source, user, content string) *Message {
	return newMessage(Data, "ChatMessage", source, []role.Role{role.LLM, role.FRONTEND}, map[string]any{
		"user":    user,
		"content": content,
	})
}

func NewLLMMessage(source Source, content, id string, emotion map[string]float64) *Message {
	return newMessage(Data, "LLMMessage", source, []role.Role{role.FRONTEND, role.TTS}, map[string]any{
		"content": content,
		"id":      id,
		"emotion": emotion,
	})
}

func NewLLMEOS(source Source) *Message {
	return newMessage(Signal, "LLMEOS", source, []role.Role{role.FRONTEND, role.TTS}, nil)
}

// AlignEntry is one token/duration pair of a TTSAlignedAudio's alignment
// data.
type AlignEntry struct {
	Token    string  `json:"token"`
	Duration float64 `json:"duration"`
}

func NewTTSAlignedAudio(source Source, id string, audio []byte, align []AlignEntry) *Message {
	return newMessage(Data, "TTSAlignedAudio", source, []role.Role{role.FRONTEND}, map[string]any{
		"id":         id,
		"audio_data": audio,
		"align_data": align,
	})
}

func NewAudioFinished(source Source) *Message {
	return newMessage(Signal, "AudioFinished", source, []role.Role{role.LLM}, nil)
}

func NewSongInfo(source Source, songID, songPath, subtitlePath string) *Message {
	return newMessage(Data, "SongInfo", source, []role.Role{role.FRONTEND, role.LLM}, map[string]any{
		"song_id":       songID,
		"song_path":     songPath,
		"subtitle_path": subtitlePath,
	})
}

func NewReadyToSing(source Source, songID string) *Message {
	return newMessage(Signal, "ReadyToSing", source, []role.Role{role.FRONTEND}, map[string]any{
		"song_id": songID,
	})
}

func NewFinishedSinging(source Source) *Message {
	return newMessage(Signal, "FinishedSinging", source, []role.Role{role.LLM}, nil)
}
