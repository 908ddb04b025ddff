package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/jwebster45206/story-graph/pkg/wait"
)

// maxSilentHops bounds consecutive transitions that emit no message.
const maxSilentHops = 256

const sessionLabelLayout = "2006-01-02 15:04"

// Options configures an Interpreter. Zero values are usable.
type Options struct {
	Logger         *slog.Logger
	Scheduler      *wait.Scheduler
	OnWaitComplete func() // Called when a wait deadline is resolved, e.g. to ring a bell
}

// Interpreter walks the story graph for one player. It owns the player
// state for the lifetime of a session and is not safe for concurrent use.
type Interpreter struct {
	story          *story.Story
	store          storage.Storage
	slot           string
	sched          *wait.Scheduler
	baseLogger     *slog.Logger
	logger         *slog.Logger
	onWaitComplete func()

	ps      *state.PlayerState
	phase   Phase
	pending []story.LocalizedString // Messages of the current visit not yet emitted
	shown   []string                // Messages of the current visit already emitted
	choices []story.Choice          // Available choices while awaiting one
	waitMsg string
	err     error
}

// New creates an interpreter over a validated story. store may be nil for
// sessions that are never persisted.
func New(st *story.Story, store storage.Storage, slot string, opts Options) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = wait.NewScheduler(false, 0)
	}
	return &Interpreter{
		story:          st,
		store:          store,
		slot:           slot,
		sched:          sched,
		baseLogger:     logger,
		logger:         logger,
		onWaitComplete: opts.OnWaitComplete,
	}
}

// Story returns the story being interpreted.
func (i *Interpreter) Story() *story.Story {
	return i.story
}

// Phase returns the current state machine phase.
func (i *Interpreter) Phase() Phase {
	return i.phase
}

// State returns a read-only snapshot of the player state, or nil without a session.
func (i *Interpreter) State() *state.PlayerState {
	return i.ps.Snapshot()
}

// NewGame starts a fresh session at the story's start node and persists it.
func (i *Interpreter) NewGame(ctx context.Context, lang string) error {
	start := i.story.Metadata.StartNode
	i.attach(state.NewPlayerState(start, i.story.StatDefs(), lang))
	i.logger.Info("Starting new game", "start_node", start, "language", i.ps.Language)

	before := i.ps.Snapshot()
	if err := i.enter(ctx, start, false); err != nil {
		_, err = i.handle(ctx, err, before)
		return err
	}
	return nil
}

// Begin resumes a loaded session. The current node's messages are replayed;
// its on-enter effects are not applied again. A pending wait or a reached
// ending is restored as is.
func (i *Interpreter) Begin(ctx context.Context, ps *state.PlayerState) error {
	if ps == nil {
		return ErrNoSession
	}
	n, ok := i.story.Node(ps.CurrentNode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, ps.CurrentNode)
	}

	i.attach(ps)
	switch {
	case ps.Ending != "":
		i.phase = PhaseEnding
	case ps.WaitingUntil != nil:
		i.phase = PhaseWaiting
		i.waitMsg = pendingWaitMessage(ps)
	default:
		i.present(n)
	}
	i.logger.Info("Resuming game", "node", ps.CurrentNode, "phase", i.phase.String())
	return i.persist(ctx)
}

// pendingWaitMessage finds the wait message logged when the pending wait
// started. Only session markers may follow it; anything else means the wait
// had no message.
func pendingWaitMessage(ps *state.PlayerState) string {
	for _, e := range slices.Backward(ps.Log) {
		if e.IsSessionMarker() {
			continue
		}
		if e.Sender == state.SenderSystem {
			return e.Text
		}
		return ""
	}
	return ""
}

// attach makes ps the session state and logs a session separator.
func (i *Interpreter) attach(ps *state.PlayerState) {
	i.ps = ps
	i.err = nil
	i.pending, i.shown, i.choices, i.waitMsg = nil, nil, nil, ""
	i.phase = PhasePresenting
	i.logger = i.baseLogger.With("session", ps.ID.String())

	now := i.sched.Clock()
	i.ps.AppendLog(state.SenderSystem, state.SessionMarkerPrefix+now.Local().Format(sessionLabelLayout), now)
}

// Step advances the state machine until one message is emitted or input is
// required. Silent transitions (branches, next_node) are followed within a
// single call. ctx is checked before every iteration.
func (i *Interpreter) Step(ctx context.Context) (Frame, error) {
	if i.ps == nil {
		return Frame{}, ErrNoSession
	}
	before := i.ps.Snapshot()

	for hops := 0; ; hops++ {
		if err := ctx.Err(); err != nil {
			return i.CurrentFrame(), err
		}
		if hops > maxSilentHops {
			return i.fail(ctx, fmt.Errorf("%w at node %q", ErrRoutingLoop, i.ps.CurrentNode), before)
		}

		var err error
		switch i.phase {
		case PhasePresenting:
			if len(i.pending) > 0 {
				i.emit()
				return i.CurrentFrame(), nil
			}
			err = i.resolve(ctx)
		case PhaseBranching:
			err = i.branch(ctx)
		case PhaseWaiting:
			if i.sched.IsWaiting(i.ps) {
				return i.CurrentFrame(), nil
			}
			err = i.completeWait(ctx)
		default:
			return i.CurrentFrame(), nil
		}
		if err != nil {
			return i.handle(ctx, err, before)
		}
	}
}

// SubmitChoice selects one of the offered choices by index.
func (i *Interpreter) SubmitChoice(ctx context.Context, index int) (Frame, error) {
	if i.ps == nil {
		return Frame{}, ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return i.CurrentFrame(), err
	}
	if i.phase != PhaseAwaitingChoice {
		return i.CurrentFrame(), fmt.Errorf("%w: not awaiting a choice (phase %s)", ErrInvalidChoice, i.phase)
	}
	if index < 0 || index >= len(i.choices) {
		return i.CurrentFrame(), fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidChoice, index, len(i.choices))
	}

	before := i.ps.Snapshot()
	choice := i.choices[index]
	i.logger.Debug("Choice submitted", "node", i.ps.CurrentNode, "index", index, "target", choice.NextNode)
	if err := i.take(ctx, choice, true); err != nil {
		return i.handle(ctx, err, before)
	}
	return i.CurrentFrame(), nil
}

// ResolveWait completes a wait whose deadline has passed and enters its target.
func (i *Interpreter) ResolveWait(ctx context.Context) error {
	if i.ps == nil {
		return ErrNoSession
	}
	if i.phase != PhaseWaiting || i.ps.WaitingUntil == nil {
		return ErrNotWaiting
	}
	if i.sched.IsWaiting(i.ps) {
		return ErrStillWaiting
	}

	before := i.ps.Snapshot()
	if err := i.completeWait(ctx); err != nil {
		_, err = i.handle(ctx, err, before)
		return err
	}
	return nil
}

// WaitOut blocks until the pending deadline passes, then resolves the wait.
// Cancelling ctx leaves the wait pending.
func (i *Interpreter) WaitOut(ctx context.Context, onTick func(Frame)) error {
	if i.ps == nil {
		return ErrNoSession
	}
	if i.phase != PhaseWaiting || i.ps.WaitingUntil == nil {
		return ErrNotWaiting
	}

	err := i.sched.ActiveWait(ctx, *i.ps.WaitingUntil, func(_ time.Duration) {
		if onTick != nil {
			onTick(i.CurrentFrame())
		}
	})
	if err != nil {
		return err
	}
	return i.ResolveWait(ctx)
}

// SetLanguage switches the display language for the rest of the session.
func (i *Interpreter) SetLanguage(ctx context.Context, lang string) error {
	if i.ps == nil {
		return ErrNoSession
	}
	if lang == "" {
		lang = state.DefaultLanguage
	}
	i.ps.Language = lang
	return i.persist(ctx)
}

// Persist saves the current player state.
func (i *Interpreter) Persist(ctx context.Context) error {
	if i.ps == nil {
		return ErrNoSession
	}
	return i.persist(ctx)
}

// Reset deletes the persisted save and drops the session.
func (i *Interpreter) Reset(ctx context.Context) error {
	if i.store != nil {
		if err := i.store.DeleteGameState(ctx, i.slot); err != nil {
			return fmt.Errorf("failed to delete save: %w", err)
		}
	}
	i.ps = nil
	i.err = nil
	i.pending, i.shown, i.choices, i.waitMsg = nil, nil, nil, ""
	i.phase = PhasePresenting
	i.logger = i.baseLogger
	i.logger.Info("Save deleted", "slot", i.slot)
	return nil
}

// CurrentFrame describes what the presentation layer should show now.
func (i *Interpreter) CurrentFrame() Frame {
	f := Frame{Phase: i.phase, Err: i.err}
	if i.ps == nil {
		return f
	}
	lang := i.ps.Language

	f.NodeID = i.ps.CurrentNode
	f.Messages = slices.Clone(i.shown)
	f.Pending = len(i.pending) > 0

	switch i.phase {
	case PhaseAwaitingChoice:
		f.Choices = make([]string, 0, len(i.choices))
		for _, c := range i.choices {
			f.Choices = append(f.Choices, c.Label.Text(lang))
		}
	case PhaseWaiting:
		if i.ps.WaitingUntil != nil {
			until := *i.ps.WaitingUntil
			f.Waiting = &WaitFrame{
				Until:          until,
				RemainingLabel: i.sched.RemainingLabel(until, lang),
				BackAt:         wait.BackAt(until),
				Message:        i.waitMsg,
			}
		}
	case PhaseEnding:
		title, desc, _ := i.story.Ending(i.ps.Ending, lang)
		f.Ending = &EndingFrame{
			Key:         i.ps.Ending,
			Title:       title,
			Description: desc,
			Day:         i.ps.Day,
		}
	}
	return f
}

// enter makes id the current node: on-enter effects are applied, the global
// override is checked once, and the result is persisted before any message
// of the node is shown.
func (i *Interpreter) enter(ctx context.Context, id string, overridden bool) error {
	n, ok := i.story.Node(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}

	i.ps.CurrentNode = id
	result := i.ps.ApplyEffects(n.OnEnter, i.story.StatDefs())
	if !overridden {
		if target, ok := i.overrideTarget(result); ok {
			return i.enter(ctx, target, true)
		}
	}

	i.present(n)
	return i.persist(ctx)
}

// present queues the node's messages for emission.
func (i *Interpreter) present(n *story.Node) {
	i.pending = slices.Clone(n.Messages)
	i.shown = nil
	i.choices = nil
	i.phase = PhasePresenting
}

func (i *Interpreter) emit() {
	text := i.pending[0].Text(i.ps.Language)
	i.pending = i.pending[1:]
	i.shown = append(i.shown, text)
	i.ps.AppendLog(state.SenderNarrator, text, i.sched.Clock())
}

// resolve decides what follows once every message of the current node has
// been emitted: ending, delay, branch, choices or next_node, in that order.
func (i *Interpreter) resolve(ctx context.Context) error {
	n, ok := i.story.Node(i.ps.CurrentNode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, i.ps.CurrentNode)
	}

	switch {
	case n.Ending != "":
		i.ps.Ending = n.Ending
		i.phase = PhaseEnding
		if _, _, found := i.story.Ending(n.Ending, i.ps.Language); !found {
			i.logger.Warn("Ending missing from glossary, showing key", "ending", n.Ending)
		}
		i.logger.Info("Ending reached", "node", n.ID, "ending", n.Ending, "day", i.ps.Day)
		return i.persist(ctx)

	case n.Delay != nil:
		return i.startWait(ctx, n)

	case len(n.Branch) > 0:
		i.phase = PhaseBranching
		return nil

	case len(n.Choices) > 0:
		return i.offerChoices(ctx, n)

	case n.NextNode != "":
		return i.enter(ctx, n.NextNode, false)

	default:
		return fmt.Errorf("%w: %q", ErrDeadEnd, n.ID)
	}
}

// startWait schedules the node's delay. The current node becomes the
// resolved target, which is entered once the wait completes.
func (i *Interpreter) startWait(ctx context.Context, n *story.Node) error {
	target := n.DelayTarget()
	if target == "" {
		return fmt.Errorf("%w: delay at %q has no target", ErrDeadEnd, n.ID)
	}
	if _, ok := i.story.Node(target); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, target)
	}

	until := i.sched.Schedule(i.ps, n.Delay.Seconds)
	i.waitMsg = n.Delay.Message.Text(i.ps.Language)
	if i.waitMsg != "" {
		i.ps.AppendLog(state.SenderSystem, i.waitMsg, i.sched.Clock())
	}
	i.ps.CurrentNode = target
	i.choices = nil
	i.phase = PhaseWaiting

	i.logger.Info("Wait scheduled", "node", n.ID, "target", target, "seconds", n.Delay.Seconds, "until", until)
	return i.persist(ctx)
}

// branch follows the first branch whose condition holds.
func (i *Interpreter) branch(ctx context.Context) error {
	n, ok := i.story.Node(i.ps.CurrentNode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, i.ps.CurrentNode)
	}

	for idx, b := range n.Branch {
		if conditionals.Evaluate(b.Condition, i.ps) {
			i.logger.Debug("Branch matched", "node", n.ID, "branch", idx, "target", b.NextNode)
			return i.enter(ctx, b.NextNode, false)
		}
	}
	return fmt.Errorf("%w at node %q", ErrNoBranchMatched, n.ID)
}

// offerChoices filters the node's choices by their conditions. An empty set
// falls back to next_node; a set made only of "..." choices is taken silently.
func (i *Interpreter) offerChoices(ctx context.Context, n *story.Node) error {
	available := make([]story.Choice, 0, len(n.Choices))
	for _, c := range n.Choices {
		if conditionals.EvaluateOptional(c.Condition, i.ps) {
			available = append(available, c)
		}
	}

	if len(available) == 0 {
		if n.NextNode != "" {
			return i.enter(ctx, n.NextNode, false)
		}
		return fmt.Errorf("%w: no available choices at %q", ErrDeadEnd, n.ID)
	}

	if !slices.ContainsFunc(available, func(c story.Choice) bool { return !c.IsAuto() }) {
		i.logger.Debug("Auto-routing placeholder choice", "node", n.ID, "target", available[0].NextNode)
		return i.take(ctx, available[0], false)
	}

	i.choices = available
	i.phase = PhaseAwaitingChoice
	return i.persist(ctx)
}

// take applies a choice and enters its target, or the override target when
// the choice's effects trigger it.
func (i *Interpreter) take(ctx context.Context, c story.Choice, logPlayer bool) error {
	if logPlayer {
		i.ps.AppendLog(state.SenderPlayer, c.Label.Text(i.ps.Language), i.sched.Clock())
	}

	result := i.ps.ApplyEffects(c.Effects, i.story.StatDefs())
	if target, ok := i.overrideTarget(result); ok {
		return i.enter(ctx, target, true)
	}
	return i.enter(ctx, c.NextNode, false)
}

func (i *Interpreter) completeWait(ctx context.Context) error {
	i.sched.Clear(i.ps)
	i.waitMsg = ""
	i.logger.Info("Wait complete", "target", i.ps.CurrentNode)
	if i.onWaitComplete != nil {
		i.onWaitComplete()
	}
	return i.enter(ctx, i.ps.CurrentNode, false)
}

// overrideTarget reports the global override target when the last effect
// touched the watched stat and the override condition now holds.
func (i *Interpreter) overrideTarget(result state.EffectResult) (string, bool) {
	o := i.story.GlobalOverride
	if o == nil || !result.TouchedStat(o.WatchedStat()) {
		return "", false
	}
	if i.ps.CurrentNode == o.NextNode {
		return "", false
	}
	if !conditionals.Evaluate(o.Condition, i.ps) {
		return "", false
	}
	i.logger.Info("Global override triggered", "from", i.ps.CurrentNode, "to", o.NextNode, "stat", o.WatchedStat())
	return o.NextNode, true
}

func (i *Interpreter) persist(ctx context.Context) error {
	if i.store == nil {
		return nil
	}
	if err := i.store.SaveGameState(ctx, i.slot, i.ps); err != nil {
		return fmt.Errorf("failed to persist player state: %w", err)
	}
	return nil
}

// handle routes runtime invariant violations to fail. Other errors, such as
// persistence failures, are returned to the caller unchanged.
func (i *Interpreter) handle(ctx context.Context, err error, before *state.PlayerState) (Frame, error) {
	if isInvariantViolation(err) {
		return i.fail(ctx, err, before)
	}
	return i.CurrentFrame(), err
}

// fail restores the last good state, persists it and ends the session.
func (i *Interpreter) fail(ctx context.Context, err error, before *state.PlayerState) (Frame, error) {
	if before != nil {
		i.ps = before
	}
	i.err = err
	i.phase = PhaseDeadEnd
	i.pending, i.choices = nil, nil
	i.logger.Error("Internal consistency failure, ending session", "node", i.ps.CurrentNode, "error", err)

	if perr := i.persist(ctx); perr != nil {
		i.logger.Error("Failed to persist last good state", "error", perr)
	}
	return i.CurrentFrame(), err
}

func isInvariantViolation(err error) bool {
	return errors.Is(err, ErrDeadEnd) ||
		errors.Is(err, ErrNoBranchMatched) ||
		errors.Is(err, ErrUnknownNode) ||
		errors.Is(err, ErrRoutingLoop)
}
