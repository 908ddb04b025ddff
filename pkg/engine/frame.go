package engine

import "time"

// Phase is the interpreter's position in the node state machine.
type Phase int

const (
	PhasePresenting     Phase = iota // Emitting the current node's messages
	PhaseAwaitingChoice              // Choices are offered, waiting for SubmitChoice
	PhaseBranching                   // Evaluating branch conditions
	PhaseWaiting                     // A real-time deadline is pending
	PhaseEnding                      // Terminal, an ending was reached
	PhaseDeadEnd                     // Terminal, a runtime invariant was violated
)

func (p Phase) String() string {
	switch p {
	case PhasePresenting:
		return "presenting"
	case PhaseAwaitingChoice:
		return "awaiting_choice"
	case PhaseBranching:
		return "branching"
	case PhaseWaiting:
		return "waiting"
	case PhaseEnding:
		return "ending"
	case PhaseDeadEnd:
		return "dead_end"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the session can no longer advance.
func (p Phase) IsTerminal() bool {
	return p == PhaseEnding || p == PhaseDeadEnd
}

// Frame is what the presentation layer renders.
type Frame struct {
	Phase    Phase
	NodeID   string
	Messages []string // Messages shown so far during the current node visit
	Pending  bool     // More messages remain for the current node
	Choices  []string // Labels of the available choices, in order
	Waiting  *WaitFrame
	Ending   *EndingFrame
	Err      error // Set in PhaseDeadEnd
}

// WaitFrame describes a pending real-time wait.
type WaitFrame struct {
	Until          time.Time
	RemainingLabel string // e.g. "5 minutes"
	BackAt         string // Local wall-clock time, e.g. "14:30"
	Message        string // The node's waiting message, if known
}

// EndingFrame is the localized presentation of the reached ending.
type EndingFrame struct {
	Key         string
	Title       string
	Description string
	Day         int
}
