package runner

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/engine"
	"github.com/jwebster45206/story-graph/pkg/state"
)

// maxSettleSteps bounds how many Step calls one action may take to settle
const maxSettleSteps = 500

// settle steps the interpreter until it needs input, is waiting, or has ended.
// It returns the narrator lines shown on the way.
func settle(ctx context.Context, it *engine.Interpreter) ([]string, error) {
	ps := it.State()
	if ps == nil {
		return nil, engine.ErrNoSession
	}
	from := len(ps.Log)

	for range maxSettleSteps {
		frame, err := it.Step(ctx)
		if err != nil {
			return nil, err
		}
		if frame.Phase != engine.PhasePresenting && frame.Phase != engine.PhaseBranching {
			return narratorSince(it.State(), from), nil
		}
	}
	return nil, fmt.Errorf("story did not settle after %d steps", maxSettleSteps)
}

func narratorSince(ps *state.PlayerState, from int) []string {
	var out []string
	for _, e := range ps.Log[min(from, len(ps.Log)):] {
		if e.Sender == state.SenderNarrator {
			out = append(out, e.Text)
		}
	}
	return out
}

// check validates the expectations against the interpreter after a step
func check(it *engine.Interpreter, exp Expectations, messages []string) error {
	ps := it.State()
	frame := it.CurrentFrame()

	if exp.Node != nil && ps.CurrentNode != *exp.Node {
		return fmt.Errorf("expected node %s, got %s", *exp.Node, ps.CurrentNode)
	}

	if exp.Phase != nil && frame.Phase.String() != *exp.Phase {
		return fmt.Errorf("expected phase %s, got %s", *exp.Phase, frame.Phase)
	}

	if exp.Ending != nil && ps.Ending != *exp.Ending {
		return fmt.Errorf("expected ending %q, got %q", *exp.Ending, ps.Ending)
	}

	if exp.Day != nil && ps.Day != *exp.Day {
		return fmt.Errorf("expected day %d, got %d", *exp.Day, ps.Day)
	}

	for name, want := range exp.Stats {
		if got := ps.Stats.Get(name); got != want {
			return fmt.Errorf("expected stat %s to be %d, got %d", name, want, got)
		}
	}

	for _, flag := range exp.Flags {
		if !ps.HasFlag(flag) {
			return fmt.Errorf("expected flag %s to be set. Actual flags: %v", flag, ps.SortedFlags())
		}
	}
	for _, flag := range exp.NotFlags {
		if ps.HasFlag(flag) {
			return fmt.Errorf("expected flag %s to be unset", flag)
		}
	}

	if len(exp.Choices) > 0 && !slices.Equal(exp.Choices, frame.Choices) {
		return fmt.Errorf("expected choices %q, got %q", exp.Choices, frame.Choices)
	}

	if len(exp.MessagesContain) > 0 {
		shown := strings.ToLower(strings.Join(messages, "\n"))
		for _, want := range exp.MessagesContain {
			if !strings.Contains(shown, strings.ToLower(want)) {
				return fmt.Errorf("expected messages to contain '%s', got %q", want, messages)
			}
		}
	}

	if exp.PlayerLog != nil {
		var n int
		for _, e := range ps.Log {
			if e.Sender == state.SenderPlayer {
				n++
			}
		}
		if n != *exp.PlayerLog {
			return fmt.Errorf("expected %d player log entries, got %d", *exp.PlayerLog, n)
		}
	}

	return nil
}
