package state

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultLanguage is used when no language has been chosen.
const DefaultLanguage = "en"

// PlayerState is the persisted progress of one play session.
// It is owned by the interpreter for the lifetime of a session.
type PlayerState struct {
	ID           uuid.UUID       `json:"id"`                      // Unique ID per session
	CurrentNode  string          `json:"current_node"`            // Node being presented, or the pending wait target
	Flags        map[string]bool `json:"flags"`                   // Presence means set
	Stats        Stats           `json:"stats"`                   // Bounded gameplay stats
	Log          []LogEntry      `json:"message_log"`             // Append-only message history
	WaitingUntil *time.Time      `json:"waiting_until,omitempty"` // Deadline of a pending wait
	Ending       string          `json:"ending,omitempty"`        // Ending key once reached
	Day          int             `json:"day"`                     // Narrative day counter
	Language     string          `json:"language"`                // BCP 47 tag, e.g. "en", "fr"
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewPlayerState creates a fresh state positioned at startNode with stats
// seeded from the story's declared defaults.
func NewPlayerState(startNode string, defs map[string]StatDef, language string) *PlayerState {
	if language == "" {
		language = DefaultLanguage
	}
	now := time.Now().UTC()
	return &PlayerState{
		ID:          uuid.New(),
		CurrentNode: startNode,
		Flags:       make(map[string]bool),
		Stats:       NewStats(defs),
		Log:         make([]LogEntry, 0),
		Day:         1,
		Language:    language,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasFlag reports whether a flag is set.
func (ps *PlayerState) HasFlag(flag string) bool {
	return ps.Flags[flag]
}

// SetFlag sets a flag. Setting an already set flag is a no-op.
func (ps *PlayerState) SetFlag(flag string) {
	if ps.Flags == nil {
		ps.Flags = make(map[string]bool)
	}
	ps.Flags[flag] = true
}

// RemoveFlag clears a flag. Clearing an absent flag is a no-op.
func (ps *PlayerState) RemoveFlag(flag string) {
	delete(ps.Flags, flag)
}

// StatValue returns the value of a stat by name; undeclared stats read as zero.
func (ps *PlayerState) StatValue(name string) int {
	return ps.Stats.Get(name)
}

// AppendLog adds an entry to the message log.
func (ps *PlayerState) AppendLog(sender Sender, text string, at time.Time) {
	ps.Log = append(ps.Log, LogEntry{Sender: sender, Text: text, Timestamp: at.UTC()})
}

// IsWaiting reports whether a wait deadline is set and still in the future.
func (ps *PlayerState) IsWaiting(now time.Time) bool {
	return ps.WaitingUntil != nil && now.Before(*ps.WaitingUntil)
}

// Snapshot returns a deep copy for read-only consumers such as the UI.
func (ps *PlayerState) Snapshot() *PlayerState {
	if ps == nil {
		return nil
	}
	c := *ps
	c.Flags = maps.Clone(ps.Flags)
	c.Stats = ps.Stats.clone()
	c.Log = slices.Clone(ps.Log)
	if ps.WaitingUntil != nil {
		until := *ps.WaitingUntil
		c.WaitingUntil = &until
	}
	return &c
}

// SortedFlags returns the names of all set flags in alphabetical order.
func (ps *PlayerState) SortedFlags() []string {
	flags := make([]string, 0, len(ps.Flags))
	for f, set := range ps.Flags {
		if set {
			flags = append(flags, f)
		}
	}
	slices.Sort(flags)
	return flags
}
