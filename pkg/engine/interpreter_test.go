package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/jwebster45206/story-graph/pkg/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func ls(s string) story.LocalizedString {
	return story.NewLocalized(s)
}

func msgs(texts ...string) []story.LocalizedString {
	out := make([]story.LocalizedString, 0, len(texts))
	for _, t := range texts {
		out = append(out, ls(t))
	}
	return out
}

func endings(keys ...string) map[string]story.EndingInfo {
	m := make(map[string]story.EndingInfo)
	for _, k := range keys {
		m[k] = story.EndingInfo{Title: ls("Title " + k), Description: ls("About " + k)}
	}
	return m
}

func newStory(start string, nodes map[string]*story.Node) *story.Story {
	for id, n := range nodes {
		n.ID = id
	}
	return &story.Story{
		Metadata: story.Metadata{Title: ls("Test"), StartNode: start},
		Endings:  endings("good", "bad", "collapse"),
		Nodes:    nodes,
	}
}

type fixture struct {
	it    *Interpreter
	store *storage.MockStorage
	sched *wait.Scheduler
	now   time.Time
}

func newFixture(t *testing.T, st *story.Story) *fixture {
	t.Helper()
	f := &fixture{store: storage.NewMockStorage(), now: testNow}
	f.sched = &wait.Scheduler{DebugDelay: wait.DefaultDebugDelay, Now: func() time.Time { return f.now }}
	f.it = New(st, f.store, "test", Options{Logger: testLogger(), Scheduler: f.sched})
	return f
}

// advance steps until the interpreter needs input or reaches a terminal phase.
func advance(t *testing.T, it *Interpreter) Frame {
	t.Helper()
	ctx := context.Background()
	for n := 0; n < 100; n++ {
		frame, err := it.Step(ctx)
		require.NoError(t, err)
		if frame.Phase != PhasePresenting && frame.Phase != PhaseBranching {
			return frame
		}
	}
	t.Fatal("interpreter did not settle")
	return Frame{}
}

func logBySender(ps *state.PlayerState, sender state.Sender) []string {
	var out []string
	for _, e := range ps.Log {
		if e.Sender == sender && !e.IsSessionMarker() {
			out = append(out, e.Text)
		}
	}
	return out
}

func twoChoiceStory() *story.Story {
	return newStory("intro", map[string]*story.Node{
		"intro": {
			Messages: msgs("Hello?", "Anyone?"),
			Choices: []story.Choice{
				{Label: ls("I'm here."), NextNode: "warm", Effects: &conditionals.Effects{Trust: 1}},
				{Label: ls("Who is this?"), NextNode: "cold", Effects: &conditionals.Effects{Trust: -2}},
			},
		},
		"warm": {Messages: msgs("Thank god."), Ending: "good"},
		"cold": {Messages: msgs("Rude."), Ending: "bad"},
	})
}

func TestInterpreter_TwoChoiceScenario(t *testing.T) {
	f := newFixture(t, twoChoiceStory())
	ctx := context.Background()
	require.NoError(t, f.it.NewGame(ctx, "en"))

	frame, err := f.it.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello?"}, frame.Messages)
	assert.True(t, frame.Pending)

	frame = advance(t, f.it)
	require.Equal(t, PhaseAwaitingChoice, frame.Phase)
	assert.Equal(t, []string{"I'm here.", "Who is this?"}, frame.Choices)
	assert.Equal(t, []string{"Hello?", "Anyone?"}, frame.Messages)

	frame, err = f.it.SubmitChoice(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "cold", frame.NodeID)

	ps := f.it.State()
	assert.Equal(t, "cold", ps.CurrentNode)
	assert.Equal(t, 1, ps.Stats.Trust, "default trust 3 minus 2")
	assert.Equal(t, []string{"Who is this?"}, logBySender(ps, state.SenderPlayer))

	saved, err := f.store.LoadGameState(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "cold", saved.CurrentNode, "transition persisted before returning")
	assert.Equal(t, 1, saved.Stats.Trust)

	frame = advance(t, f.it)
	require.Equal(t, PhaseEnding, frame.Phase)
	require.NotNil(t, frame.Ending)
	assert.Equal(t, "bad", frame.Ending.Key)
	assert.Equal(t, "Title bad", frame.Ending.Title)
	assert.Equal(t, "About bad", frame.Ending.Description)
	assert.Equal(t, 1, frame.Ending.Day)
}

func TestInterpreter_BranchOrdering(t *testing.T) {
	st := newStory("check", map[string]*story.Node{
		"check": {
			Branch: []story.Branch{
				{Condition: conditionals.BranchCondition{Flags: []string{"never_set"}}, NextNode: "a"},
				{Condition: conditionals.BranchCondition{MinTrust: conditionals.IntPtr(3)}, NextNode: "b"},
				{Condition: conditionals.BranchCondition{Default: true}, NextNode: "c"},
			},
		},
		"a": {Messages: msgs("at a"), Ending: "bad"},
		"b": {Messages: msgs("at b"), Ending: "good"},
		"c": {Messages: msgs("at c"), Ending: "bad"},
	})
	f := newFixture(t, st)
	ctx := context.Background()
	require.NoError(t, f.it.NewGame(ctx, "en"))

	frame, err := f.it.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", frame.NodeID)
	assert.Equal(t, []string{"at b"}, frame.Messages)
	assert.Empty(t, logBySender(f.it.State(), state.SenderPlayer), "branching is silent")
}

func TestInterpreter_DelayDebugMode(t *testing.T) {
	st := newStory("radio", map[string]*story.Node{
		"radio": {
			Messages: msgs("Hold on."),
			Delay:    &story.DelayInfo{Seconds: 120, Message: ls("Mara is busy.")},
			NextNode: "back",
		},
		"back": {Messages: msgs("I'm back."), OnEnter: &conditionals.Effects{Morale: 1}, Ending: "good"},
	})
	f := newFixture(t, st)
	f.sched.Debug = true
	var bells int
	f.it.onWaitComplete = func() { bells++ }
	ctx := context.Background()
	require.NoError(t, f.it.NewGame(ctx, "en"))

	frame := advance(t, f.it)
	require.Equal(t, PhaseWaiting, frame.Phase)
	require.NotNil(t, frame.Waiting)
	assert.Equal(t, testNow.Add(5*time.Second), frame.Waiting.Until, "debug mode collapses 120s to 5s")
	assert.Equal(t, "less than a minute", frame.Waiting.RemainingLabel)
	assert.Equal(t, "Mara is busy.", frame.Waiting.Message)

	ps := f.it.State()
	assert.Equal(t, "back", ps.CurrentNode, "current node is the pending target")
	assert.Equal(t, 5, ps.Stats.Morale, "target not entered yet")
	assert.Contains(t, logBySender(ps, state.SenderSystem), "Mara is busy.")

	assert.ErrorIs(t, f.it.ResolveWait(ctx), ErrStillWaiting)
	frame, err := f.it.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseWaiting, frame.Phase, "stepping before the deadline changes nothing")

	f.now = testNow.Add(6 * time.Second)
	frame, err = f.it.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"I'm back."}, frame.Messages)
	assert.Equal(t, 1, bells)
	assert.Nil(t, f.it.State().WaitingUntil)
	assert.Equal(t, 6, f.it.State().Stats.Morale, "on_enter applied once the wait resolves")
}

func TestInterpreter_DelayWithChoicesUsesFirstChoice(t *testing.T) {
	st := newStory("odd", map[string]*story.Node{
		"odd": {
			Delay:    &story.DelayInfo{Seconds: 30},
			NextNode: "ignored",
			Choices:  []story.Choice{{Label: ls("x"), NextNode: "first"}, {Label: ls("y"), NextNode: "ignored"}},
		},
		"first":   {Ending: "good"},
		"ignored": {Ending: "bad"},
	})
	f := newFixture(t, st)
	ctx := context.Background()
	require.NoError(t, f.it.NewGame(ctx, "en"))

	frame := advance(t, f.it)
	require.Equal(t, PhaseWaiting, frame.Phase)
	assert.Equal(t, "first", f.it.State().CurrentNode)
	assert.Equal(t, testNow.Add(30*time.Second), frame.Waiting.Until)
}

func TestInterpreter_WaitOut(t *testing.T) {
	st := newStory("radio", map[string]*story.Node{
		"radio": {Delay: &story.DelayInfo{Seconds: 600}, NextNode: "back"},
		"back":  {Messages: msgs("Back."), Ending: "good"},
	})
	sched := wait.NewScheduler(true, 200*time.Millisecond)
	it := New(st, storage.NewMockStorage(), "test", Options{Logger: testLogger(), Scheduler: sched})
	ctx := context.Background()
	require.NoError(t, it.NewGame(ctx, "en"))

	frame := advance(t, it)
	require.Equal(t, PhaseWaiting, frame.Phase)

	require.NoError(t, it.WaitOut(ctx, nil))
	assert.Equal(t, PhasePresenting, it.Phase())
	assert.ErrorIs(t, it.WaitOut(ctx, nil), ErrNotWaiting)
}

func TestInterpreter_GlobalOverride(t *testing.T) {
	build := func() *story.Story {
		st := newStory("bridge", map[string]*story.Node{
			"bridge": {
				Choices: []story.Choice{
					{Label: ls("Jump"), NextNode: "other_side", Effects: &conditionals.Effects{Health: -20}},
					{Label: ls("Walk"), NextNode: "other_side", Effects: &conditionals.Effects{Trust: -20}},
				},
			},
			"other_side": {Messages: msgs("Made it."), Ending: "good"},
			"collapse":   {Messages: msgs("Static."), Ending: "collapse"},
		})
		st.GlobalOverride = &story.GlobalOverride{
			Condition: conditionals.BranchCondition{MaxHealth: conditionals.IntPtr(0)},
			NextNode:  "collapse",
		}
		return st
	}

	tests := []struct {
		name   string
		choice int
		want   string
	}{
		{"health reaching zero reroutes", 0, "collapse"},
		{"other stats never trigger it", 1, "other_side"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, build())
			ctx := context.Background()
			require.NoError(t, f.it.NewGame(ctx, "en"))
			require.Equal(t, PhaseAwaitingChoice, advance(t, f.it).Phase)

			frame, err := f.it.SubmitChoice(ctx, tt.choice)
			require.NoError(t, err)
			assert.Equal(t, tt.want, frame.NodeID)
		})
	}
}

func TestInterpreter_GlobalOverrideOnEnter(t *testing.T) {
	st := newStory("start", map[string]*story.Node{
		"start":    {NextNode: "trap"},
		"trap":     {OnEnter: &conditionals.Effects{Health: -10}, Messages: msgs("Ouch."), Ending: "bad"},
		"collapse": {OnEnter: &conditionals.Effects{Health: -1}, Messages: msgs("Static."), Ending: "collapse"},
	})
	st.GlobalOverride = &story.GlobalOverride{
		Watch:     "health",
		Condition: conditionals.BranchCondition{MaxHealth: conditionals.IntPtr(0)},
		NextNode:  "collapse",
	}
	f := newFixture(t, st)
	require.NoError(t, f.it.NewGame(context.Background(), "en"))

	frame := advance(t, f.it)
	require.Equal(t, PhaseEnding, frame.Phase)
	assert.Equal(t, "collapse", frame.Ending.Key)
	assert.Equal(t, "Title collapse", frame.Ending.Title)
}

func TestInterpreter_ChoiceFiltering(t *testing.T) {
	st := newStory("gate", map[string]*story.Node{
		"gate": {
			Choices: []story.Choice{
				{Label: ls("Trust me"), NextNode: "good_end", Condition: &conditionals.BranchCondition{MinTrust: conditionals.IntPtr(8)}},
				{Label: ls("Please"), NextNode: "bad_end"},
			},
		},
		"good_end": {Ending: "good"},
		"bad_end":  {Ending: "bad"},
	})
	f := newFixture(t, st)
	ctx := context.Background()
	require.NoError(t, f.it.NewGame(ctx, "en"))

	frame := advance(t, f.it)
	assert.Equal(t, []string{"Please"}, frame.Choices)

	frame, err := f.it.SubmitChoice(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "bad_end", frame.NodeID, "indexes refer to the filtered list")
}

func TestInterpreter_EmptyChoicesFallBackToNextNode(t *testing.T) {
	st := newStory("gate", map[string]*story.Node{
		"gate": {
			Choices:  []story.Choice{{Label: ls("Locked"), NextNode: "bad_end", Condition: &conditionals.BranchCondition{Flags: []string{"key"}}}},
			NextNode: "good_end",
		},
		"good_end": {Ending: "good"},
		"bad_end":  {Ending: "bad"},
	})
	f := newFixture(t, st)
	require.NoError(t, f.it.NewGame(context.Background(), "en"))

	frame := advance(t, f.it)
	require.Equal(t, PhaseEnding, frame.Phase)
	assert.Equal(t, "good", frame.Ending.Key)
}

func TestInterpreter_AutoRouteChoice(t *testing.T) {
	st := newStory("pause", map[string]*story.Node{
		"pause":    {Messages: msgs("Hm."), Choices: []story.Choice{{Label: ls("..."), NextNode: "good_end", Effects: &conditionals.Effects{Supplies: 1}}}},
		"good_end": {Ending: "good"},
	})
	f := newFixture(t, st)
	require.NoError(t, f.it.NewGame(context.Background(), "en"))

	frame := advance(t, f.it)
	require.Equal(t, PhaseEnding, frame.Phase)
	ps := f.it.State()
	assert.Empty(t, logBySender(ps, state.SenderPlayer), "auto-routed choices are not logged")
	assert.Equal(t, 6, ps.Stats.Supplies, "effects still apply")
}

func TestInterpreter_RuntimeInvariantViolations(t *testing.T) {
	tests := []struct {
		name  string
		story *story.Story
		want  error
	}{
		{
			name: "dead end",
			story: newStory("start", map[string]*story.Node{
				"start": {NextNode: "void"},
				"void":  {Messages: msgs("...")},
			}),
			want: ErrDeadEnd,
		},
		{
			name: "no branch matched",
			story: newStory("start", map[string]*story.Node{
				"start": {Branch: []story.Branch{{Condition: conditionals.BranchCondition{Flags: []string{"nope"}}, NextNode: "end"}}},
				"end":   {Ending: "good"},
			}),
			want: ErrNoBranchMatched,
		},
		{
			name: "unknown node",
			story: newStory("start", map[string]*story.Node{
				"start": {NextNode: "missing"},
			}),
			want: ErrUnknownNode,
		},
		{
			name: "routing loop",
			story: newStory("a", map[string]*story.Node{
				"a": {NextNode: "b"},
				"b": {NextNode: "a"},
			}),
			want: ErrRoutingLoop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.story)
			ctx := context.Background()
			require.NoError(t, f.it.NewGame(ctx, "en"))
			savedBefore, err := f.store.LoadGameState(ctx, "test")
			require.NoError(t, err)

			var frame Frame
			for n := 0; n < 10; n++ {
				frame, err = f.it.Step(ctx)
				if err != nil || frame.Phase.IsTerminal() {
					break
				}
			}

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, PhaseDeadEnd, frame.Phase)
			assert.ErrorIs(t, frame.Err, tt.want)

			saved, loadErr := f.store.LoadGameState(ctx, "test")
			require.NoError(t, loadErr)
			assert.Equal(t, f.it.State().CurrentNode, saved.CurrentNode, "last good state persisted")
			if tt.name == "routing loop" || tt.name == "unknown node" {
				assert.Equal(t, savedBefore.CurrentNode, saved.CurrentNode)
			}

			_, err = f.it.Step(ctx)
			assert.NoError(t, err, "a dead session stays put")
			assert.Equal(t, PhaseDeadEnd, f.it.Phase())
		})
	}
}

func TestInterpreter_Cancellation(t *testing.T) {
	f := newFixture(t, twoChoiceStory())
	require.NoError(t, f.it.NewGame(context.Background(), "en"))
	before := f.it.State()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.it.Step(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before.Log, f.it.State().Log, "nothing emitted after cancellation")

	_, err = f.it.SubmitChoice(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, f.it.Persist(context.Background()), "final persist still works on a fresh context")
}

func TestInterpreter_InvalidChoice(t *testing.T) {
	f := newFixture(t, twoChoiceStory())
	ctx := context.Background()
	require.NoError(t, f.it.NewGame(ctx, "en"))

	_, err := f.it.SubmitChoice(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidChoice, "not awaiting a choice yet")

	advance(t, f.it)
	for _, idx := range []int{-1, 2, 99} {
		_, err = f.it.SubmitChoice(ctx, idx)
		assert.ErrorIs(t, err, ErrInvalidChoice)
	}
	assert.Equal(t, PhaseAwaitingChoice, f.it.Phase(), "invalid input changes nothing")
}

func TestInterpreter_Localization(t *testing.T) {
	st := newStory("intro", map[string]*story.Node{
		"intro": {
			Messages: []story.LocalizedString{{"en": "Hello?", "fr": "Allô ?"}},
			Choices:  []story.Choice{{Label: story.LocalizedString{"en": "Yes", "fr": "Oui"}, NextNode: "end"}},
		},
		"end": {Ending: "good"},
	})
	f := newFixture(t, st)
	ctx := context.Background()
	require.NoError(t, f.it.NewGame(ctx, "fr"))

	frame, err := f.it.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Allô ?"}, frame.Messages)

	frame = advance(t, f.it)
	assert.Equal(t, []string{"Oui"}, frame.Choices)

	require.NoError(t, f.it.SetLanguage(ctx, "en"))
	assert.Equal(t, []string{"Yes"}, f.it.CurrentFrame().Choices)
}

func TestInterpreter_EndingMissingFromGlossary(t *testing.T) {
	st := newStory("end", map[string]*story.Node{"end": {Ending: "mystery"}})
	f := newFixture(t, st)
	require.NoError(t, f.it.NewGame(context.Background(), "en"))

	frame := advance(t, f.it)
	require.Equal(t, PhaseEnding, frame.Phase)
	assert.Equal(t, "mystery", frame.Ending.Title)
	assert.Empty(t, frame.Ending.Description)
}

func TestInterpreter_AdvanceDayShownOnEnding(t *testing.T) {
	st := newStory("night", map[string]*story.Node{
		"night": {OnEnter: &conditionals.Effects{AdvanceDay: 2}, NextNode: "end"},
		"end":   {Ending: "good"},
	})
	f := newFixture(t, st)
	require.NoError(t, f.it.NewGame(context.Background(), "en"))

	frame := advance(t, f.it)
	assert.Equal(t, 3, frame.Ending.Day)
}

func TestInterpreter_NoSession(t *testing.T) {
	it := New(twoChoiceStory(), nil, "", Options{})
	ctx := context.Background()

	_, err := it.Step(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = it.SubmitChoice(ctx, 0)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, it.ResolveWait(ctx), ErrNoSession)
	assert.ErrorIs(t, it.Begin(ctx, nil), ErrNoSession)
	assert.Nil(t, it.State())
}
