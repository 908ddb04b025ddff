package runner

import (
	"time"

	"github.com/google/uuid"
)

// Special step actions that do something other than pick a choice
const (
	ActionWait    = "WAIT"    // Move the clock past the pending deadline
	ActionRestart = "RESTART" // Drop the interpreter and resume from the save
	ActionReset   = "RESET"   // Delete the save and start a new game
)

// TestSuite defines a scripted playthrough.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name     string     `yaml:"name"`
	Story    string     `yaml:"story,omitempty"`    // Story file; the embedded story when empty
	Language string     `yaml:"language,omitempty"` // Defaults to English
	Steps    []TestStep `yaml:"steps,omitempty"`    // Used for regular tests
	Cases    []string   `yaml:"cases,omitempty"`    // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one player action and its expected outcome.
// Choose is 1-based, matching the numbers shown in the console.
type TestStep struct {
	Name         string       `yaml:"name,omitempty"`
	Choose       int          `yaml:"choose,omitempty"`
	Action       string       `yaml:"action,omitempty"`
	Expectations Expectations `yaml:"expect"`
}

// Expectations defines what to check after a step once the story settles
type Expectations struct {
	Node            *string        `yaml:"node,omitempty"`  // Current node (the pending target while waiting)
	Phase           *string        `yaml:"phase,omitempty"` // e.g. "awaiting_choice", "waiting", "ending"
	Ending          *string        `yaml:"ending,omitempty"`
	Day             *int           `yaml:"day,omitempty"`
	Stats           map[string]int `yaml:"stats,omitempty"`
	Flags           []string       `yaml:"flags,omitempty"`
	NotFlags        []string       `yaml:"not_flags,omitempty"`
	Choices         []string       `yaml:"choices,omitempty"`          // Offered labels, in order
	MessagesContain []string       `yaml:"messages_contain,omitempty"` // Narrator lines shown by this step
	PlayerLog       *int           `yaml:"player_log,omitempty"`       // Total player entries in the log
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Messages []string // Narrator lines shown during the step
	IsReset  bool     // True if this was a RESET step
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // Player session played by this run
}
