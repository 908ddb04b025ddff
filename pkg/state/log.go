package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SessionMarkerPrefix marks System log entries that separate play sessions.
const SessionMarkerPrefix = "SESSION:"

// Sender tags who produced a log entry.
type Sender int

const (
	SenderNarrator Sender = iota // The story's character speaking over the radio
	SenderPlayer
	SenderSystem
)

func (s Sender) String() string {
	switch s {
	case SenderPlayer:
		return "player"
	case SenderSystem:
		return "system"
	default:
		return "narrator"
	}
}

// MarshalJSON writes the sender as its lowercase name.
func (s Sender) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the lowercase sender name.
func (s *Sender) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch strings.ToLower(name) {
	case "narrator":
		*s = SenderNarrator
	case "player":
		*s = SenderPlayer
	case "system":
		*s = SenderSystem
	default:
		return fmt.Errorf("unknown sender %q", name)
	}
	return nil
}

// LogEntry is a single line of the message log.
type LogEntry struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// IsSessionMarker reports whether the entry separates two play sessions.
func (e LogEntry) IsSessionMarker() bool {
	return e.Sender == SenderSystem && strings.HasPrefix(e.Text, SessionMarkerPrefix)
}

// SessionLabel returns the label of a session marker entry.
func (e LogEntry) SessionLabel() string {
	return strings.TrimPrefix(e.Text, SessionMarkerPrefix)
}
